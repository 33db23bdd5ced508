package translator

import (
	"context"
	"strings"
	"time"
)

// EchoBackend returns each prompt as its own translation, cut at the first
// stop sequence. It needs no model and exercises the full pipeline.
type EchoBackend struct {
	stop []string
}

func NewEchoBackend(cfg ServiceConfig) *EchoBackend {
	return &EchoBackend{stop: cfg.Stop}
}

func (b *EchoBackend) Name() string {
	return "echo"
}

func (b *EchoBackend) Model() string {
	return "echo"
}

func (b *EchoBackend) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	text := req.Prompt
	for _, s := range b.stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 {
			text = text[:i]
		}
	}
	return &Result{Text: text, Raw: req.Prompt, Latency: time.Since(start)}, nil
}

func (b *EchoBackend) Close() error {
	return nil
}
