package translator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/indicmt/internal/postprocess"
)

const (
	DefaultVLLMURL       = "http://localhost:8000/v1"
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
)

// OpenAIBackend talks to any OpenAI-compatible server: a local vLLM
// instance, OpenRouter or the OpenAI API itself. Completion prompts go to
// /completions; with cfg.Chat they are sent as a single user message.
type OpenAIBackend struct {
	name   string
	cfg    ServiceConfig
	client *openai.Client
	http   *http.Client
}

// NewOpenAIBackend builds the client and verifies the server answers and,
// when it publishes a model list, that cfg.Model is on it.
func NewOpenAIBackend(ctx context.Context, name string, cfg ServiceConfig) (*OpenAIBackend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s model name required", name)
	}
	if cfg.BaseURL == "" {
		switch name {
		case "openrouter":
			cfg.BaseURL = DefaultOpenRouterURL
		case "vllm":
			cfg.BaseURL = DefaultVLLMURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oaCfg.HTTPClient = httpClient

	b := &OpenAIBackend{
		name:   name,
		cfg:    cfg,
		client: openai.NewClientWithConfig(oaCfg),
		http:   httpClient,
	}
	if err := b.checkModel(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *OpenAIBackend) Name() string {
	return b.name
}

func (b *OpenAIBackend) Model() string {
	return b.cfg.Model
}

func (b *OpenAIBackend) checkModel(ctx context.Context) error {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("%s not available: %w", b.name, err)
	}
	if len(list.Models) == 0 {
		return nil
	}
	for _, m := range list.Models {
		if m.ID == b.cfg.Model {
			return nil
		}
	}
	return fmt.Errorf("model %s is not served by %s", b.cfg.Model, b.name)
}

func (b *OpenAIBackend) temperature() float32 {
	t := b.cfg.EffectiveTemperature()
	if t <= 0 {
		return greedyTemperature
	}
	return float32(t)
}

func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	var (
		raw    string
		finish string
		usage  openai.Usage
	)
	if b.cfg.Chat {
		resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: b.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
			},
			MaxTokens:   b.cfg.MaxNewTokens,
			Temperature: b.temperature(),
			TopP:        float32(b.cfg.EffectiveTopP()),
			Stop:        b.cfg.Stop,
		})
		if err != nil {
			return result, fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return result, fmt.Errorf("empty response from API")
		}
		raw, finish, usage = resp.Choices[0].Message.Content, string(resp.Choices[0].FinishReason), resp.Usage
	} else {
		resp, err := b.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       b.cfg.Model,
			Prompt:      req.Prompt,
			MaxTokens:   b.cfg.MaxNewTokens,
			Temperature: b.temperature(),
			TopP:        float32(b.cfg.EffectiveTopP()),
			Stop:        b.cfg.Stop,
		})
		if err != nil {
			return result, fmt.Errorf("completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return result, fmt.Errorf("empty response from API")
		}
		raw, finish, usage = resp.Choices[0].Text, resp.Choices[0].FinishReason, resp.Usage
	}

	result.Raw = raw
	result.Text = postprocess.Clean(raw)
	result.Metadata = map[string]string{
		"model":             b.cfg.Model,
		"finish_reason":     finish,
		"prompt_tokens":     fmt.Sprintf("%d", usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", usage.CompletionTokens),
	}
	return result, nil
}

func (b *OpenAIBackend) Close() error {
	b.http.CloseIdleConnections()
	return nil
}
