package translator

import (
	"context"
	"fmt"
	"html"
	"time"

	translate "cloud.google.com/go/translate"
	"google.golang.org/api/option"

	"github.com/valpere/indicmt/internal/lang"
)

// GoogleBackend is the commercial MT baseline. It ignores the rendered
// prompt and translates the raw source unit.
type GoogleBackend struct {
	cfg    ServiceConfig
	client *translate.Client
}

func NewGoogleBackend(ctx context.Context, cfg ServiceConfig) (*GoogleBackend, error) {
	opts := []option.ClientOption{}
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %v", err)
	}
	if cfg.Model == "" {
		cfg.Model = "nmt"
	}
	return &GoogleBackend{cfg: cfg, client: client}, nil
}

func (b *GoogleBackend) Name() string {
	return "google"
}

func (b *GoogleBackend) Model() string {
	return b.cfg.Model
}

func (b *GoogleBackend) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if req.Source == "" {
		return result, fmt.Errorf("unit %d has no source text", req.ID)
	}
	target, err := lang.Tag(req.TargetLang)
	if err != nil {
		return result, fmt.Errorf("invalid target language: %v", err)
	}
	source, err := lang.Tag(req.SourceLang)
	if err != nil {
		return result, fmt.Errorf("invalid source language: %v", err)
	}

	translations, err := b.client.Translate(ctx, []string{req.Source}, target, &translate.Options{
		Source: source,
		Format: translate.Text,
		Model:  b.cfg.Model,
	})
	if err != nil {
		return result, fmt.Errorf("translation failed: %v", err)
	}
	if len(translations) == 0 {
		return result, fmt.Errorf("no translation returned")
	}

	result.Raw = translations[0].Text
	result.Text = html.UnescapeString(translations[0].Text)
	result.Metadata = map[string]string{"model": translations[0].Model}
	return result, nil
}

func (b *GoogleBackend) Close() error {
	return b.client.Close()
}
