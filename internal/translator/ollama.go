package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/indicmt/internal/postprocess"
)

const DefaultOllamaURL = "http://localhost:11434"

type OllamaBackend struct {
	baseURL string
	cfg     ServiceConfig
	client  *http.Client
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Raw     bool           `json:"raw"`
	Options map[string]any `json:"options"`
}

type ollamaGenerateResponse struct {
	Response   string `json:"response"`
	EvalCount  int    `json:"eval_count"`
	DoneReason string `json:"done_reason"`
}

// NewOllamaBackend connects to an Ollama server and checks that cfg.Model
// is pulled. Completion-style prompts are sent raw unless cfg.Chat is set,
// in which case Ollama applies the model's chat template.
func NewOllamaBackend(ctx context.Context, cfg ServiceConfig) (*OllamaBackend, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model name required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	b := &OllamaBackend{
		baseURL: baseURL,
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
	}
	if err := b.checkModel(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *OllamaBackend) Name() string {
	return "ollama"
}

func (b *OllamaBackend) Model() string {
	return b.cfg.Model
}

func (b *OllamaBackend) checkModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/tags", b.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == b.cfg.Model || m.Name == b.cfg.Model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model %s is not available on %s", b.cfg.Model, b.baseURL)
}

func (b *OllamaBackend) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	options := map[string]any{
		"temperature": b.cfg.EffectiveTemperature(),
		"top_p":       b.cfg.EffectiveTopP(),
	}
	if b.cfg.MaxNewTokens > 0 {
		options["num_predict"] = b.cfg.MaxNewTokens
	}
	if len(b.cfg.Stop) > 0 {
		options["stop"] = b.cfg.Stop
	}

	jsonData, err := json.Marshal(ollamaGenerateRequest{
		Model:   b.cfg.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Raw:     !b.cfg.Chat,
		Options: options,
	})
	if err != nil {
		return result, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", b.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return result, fmt.Errorf("failed to decode response: %w", err)
	}

	result.Raw = ollamaResp.Response
	result.Text = postprocess.Clean(ollamaResp.Response)
	result.Metadata = map[string]string{
		"model":       b.cfg.Model,
		"eval_count":  fmt.Sprintf("%d", ollamaResp.EvalCount),
		"done_reason": ollamaResp.DoneReason,
	}
	return result, nil
}

func (b *OllamaBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
