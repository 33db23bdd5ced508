package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/valpere/indicmt/internal"
)

func newOllamaServer(t *testing.T, response string, captured *ollamaGenerateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "llama3:latest"}},
			})
		case "/api/generate":
			if captured != nil {
				json.NewDecoder(r.Body).Decode(captured)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"response":    response,
				"eval_count":  7,
				"done_reason": "stop",
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaBackend_Generate(t *testing.T) {
	var captured ollamaGenerateRequest
	server := newOllamaServer(t, "<|im_end|> শুভ সকাল।\n", &captured)
	defer server.Close()

	b, err := NewOllamaBackend(context.Background(), ServiceConfig{
		BaseURL:      server.URL,
		Model:        "llama3",
		MaxNewTokens: 64,
		Stop:         []string{"\n\n"},
	})
	if err != nil {
		t.Fatalf("NewOllamaBackend failed: %v", err)
	}
	defer b.Close()

	result, err := b.Generate(context.Background(), Request{Prompt: "English: Good morning.\nBengali:"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "শুভ সকাল।" {
		t.Errorf("expected cleaned text, got %q", result.Text)
	}
	if result.Metadata["eval_count"] != "7" {
		t.Errorf("unexpected metadata %v", result.Metadata)
	}
	if !captured.Raw {
		t.Error("completion prompts must be sent raw")
	}
	if captured.Options["temperature"] != float64(0) {
		t.Errorf("expected greedy temperature, got %v", captured.Options["temperature"])
	}
	if captured.Options["num_predict"] != float64(64) {
		t.Errorf("expected num_predict 64, got %v", captured.Options["num_predict"])
	}
}

func TestOllamaBackend_MissingModel(t *testing.T) {
	server := newOllamaServer(t, "", nil)
	defer server.Close()

	if _, err := NewOllamaBackend(context.Background(), ServiceConfig{BaseURL: server.URL, Model: "mistral"}); err == nil {
		t.Error("expected error for model that is not pulled")
	}
}

func TestOllamaBackend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewOllamaBackend(context.Background(), ServiceConfig{BaseURL: server.URL, Model: "llama3"})
	if err != nil {
		t.Fatalf("NewOllamaBackend failed: %v", err)
	}
	if _, err := b.Generate(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("expected error for non-OK status")
	}
}

func TestOllamaBackend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
			return
		}
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"response":"late"}`))
	}))
	defer server.Close()

	b, err := NewOllamaBackend(context.Background(), ServiceConfig{BaseURL: server.URL, Model: "llama3"})
	if err != nil {
		t.Fatalf("NewOllamaBackend failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Generate(ctx, Request{Prompt: "x"}); err == nil {
		t.Error("expected timeout error")
	}
}

func newOpenAIServer(t *testing.T, models []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			data := []map[string]string{}
			for _, m := range models {
				data = append(data, map[string]string{"id": m, "object": "model"})
			}
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
		case "/v1/completions":
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			if temp, _ := req["temperature"].(float64); temp > 0.001 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"text": " नमस्ते\n", "finish_reason": "stop"}},
				"usage":   map[string]int{"prompt_tokens": 12, "completion_tokens": 3},
			})
		case "/v1/chat/completions":
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{
					"message":       map[string]string{"role": "assistant", "content": "Here is the Hindi translation: \"नमस्ते\""},
					"finish_reason": "stop",
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOpenAIBackend_Completion(t *testing.T) {
	server := newOpenAIServer(t, []string{"test-model"})
	defer server.Close()

	b, err := NewOpenAIBackend(context.Background(), "vllm", ServiceConfig{
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
	})
	if err != nil {
		t.Fatalf("NewOpenAIBackend failed: %v", err)
	}
	defer b.Close()

	result, err := b.Generate(context.Background(), Request{Prompt: "English: Hello\nHindi:"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "नमस्ते" {
		t.Errorf("expected %q, got %q", "नमस्ते", result.Text)
	}
	if result.Metadata["prompt_tokens"] != "12" {
		t.Errorf("unexpected metadata %v", result.Metadata)
	}
}

func TestOpenAIBackend_Chat(t *testing.T) {
	server := newOpenAIServer(t, []string{"test-model"})
	defer server.Close()

	b, err := NewOpenAIBackend(context.Background(), "openai", ServiceConfig{
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
		Chat:    true,
	})
	if err != nil {
		t.Fatalf("NewOpenAIBackend failed: %v", err)
	}

	result, err := b.Generate(context.Background(), Request{Prompt: "Translate: Hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "नमस्ते" {
		t.Errorf("expected cleaned chat reply, got %q", result.Text)
	}
}

func TestOpenAIBackend_UnknownModel(t *testing.T) {
	server := newOpenAIServer(t, []string{"other-model"})
	defer server.Close()

	_, err := NewOpenAIBackend(context.Background(), "vllm", ServiceConfig{
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
	})
	if err == nil {
		t.Error("expected error for model not served")
	}
}

func TestLoad(t *testing.T) {
	server := newOpenAIServer(t, []string{"test-model"})
	defer server.Close()

	tests := []struct {
		name    string
		cfg     ServiceConfig
		want    string
		wantErr bool
	}{
		{name: "echo", cfg: ServiceConfig{Backend: "echo"}, want: "echo"},
		{name: "vllm", cfg: ServiceConfig{Backend: "vLLM", BaseURL: server.URL + "/v1", Model: "test-model"}, want: "vllm"},
		{name: "unknown backend", cfg: ServiceConfig{Backend: "marian"}, wantErr: true},
		{name: "missing model", cfg: ServiceConfig{Backend: "ollama", BaseURL: server.URL}, wantErr: true},
		{name: "unreachable server", cfg: ServiceConfig{Backend: "vllm", BaseURL: "http://127.0.0.1:1/v1", Model: "m"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Load(context.Background(), tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, internal.ErrModelLoad) {
					t.Errorf("expected ErrModelLoad, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer b.Close()
			if b.Name() != tt.want {
				t.Errorf("expected backend %q, got %q", tt.want, b.Name())
			}
		})
	}
}

func TestEchoBackend(t *testing.T) {
	b := NewEchoBackend(ServiceConfig{Stop: []string{"\n\n"}})

	tests := []struct {
		prompt string
		want   string
	}{
		{prompt: "single line", want: "single line"},
		{prompt: "line one\nline two", want: "line one\nline two"},
		{prompt: "kept\n\ndropped", want: "kept"},
		{prompt: "", want: ""},
	}
	for _, tt := range tests {
		result, err := b.Generate(context.Background(), Request{Prompt: tt.prompt})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Text != tt.want {
			t.Errorf("Generate(%q) = %q, want %q", tt.prompt, result.Text, tt.want)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Generate(ctx, Request{Prompt: "x"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestServiceConfig_Decoding(t *testing.T) {
	cfg := ServiceConfig{Temperature: 0.7, TopP: 0.9}
	if cfg.EffectiveTemperature() != 0 || cfg.EffectiveTopP() != 1 {
		t.Error("greedy decoding expected when sampling is off")
	}
	cfg.Sampling = true
	if cfg.EffectiveTemperature() != 0.7 || cfg.EffectiveTopP() != 0.9 {
		t.Error("sampling parameters expected when sampling is on")
	}
}
