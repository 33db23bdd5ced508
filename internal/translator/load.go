package translator

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/indicmt/internal"
)

// Backends lists the names Load accepts.
var Backends = []string{"ollama", "vllm", "openai", "openrouter", "google", "echo"}

// Load constructs the backend named by cfg.Backend. Any failure is wrapped
// in internal.ErrModelLoad so callers can abort the stage.
func Load(ctx context.Context, cfg ServiceConfig) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log.WithFields(log.Fields{
		"backend": name,
		"model":   cfg.Model,
	}).Info("Loading model")

	var (
		b   Backend
		err error
	)
	switch name {
	case "ollama":
		b, err = NewOllamaBackend(ctx, cfg)
	case "vllm", "openai", "openrouter":
		b, err = NewOpenAIBackend(ctx, name, cfg)
	case "google":
		b, err = NewGoogleBackend(ctx, cfg)
	case "echo":
		b = NewEchoBackend(cfg)
	default:
		err = fmt.Errorf("unknown backend %q (want one of %s)", cfg.Backend, strings.Join(Backends, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrModelLoad, err)
	}
	return b, nil
}
