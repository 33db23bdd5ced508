// Package translator provides the model backends the inference runner
// drives: LLM servers (Ollama, OpenAI-compatible), the Google MT baseline
// and an echo backend for dry runs.
package translator

import (
	"context"
	"time"
)

// greedyTemperature stands in for 0 where a client drops zero values;
// servers treat anything below their sampling epsilon as greedy decoding.
const greedyTemperature = 1e-6

// ServiceConfig selects and parameterises a backend. It is fixed for the
// lifetime of a loaded backend.
type ServiceConfig struct {
	Backend      string        `mapstructure:"backend" json:"backend"`
	Model        string        `mapstructure:"name" json:"model"`
	BaseURL      string        `mapstructure:"base_url" json:"base_url"`
	APIKey       string        `mapstructure:"api_key" json:"-"`
	Credentials  string        `mapstructure:"credentials" json:"credentials"`
	ProjectID    string        `mapstructure:"project_id" json:"project_id"`
	Chat         bool          `mapstructure:"chat" json:"chat"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxNewTokens int           `mapstructure:"max_new_tokens" json:"max_new_tokens"`
	Sampling     bool          `mapstructure:"sampling" json:"sampling"`
	Temperature  float64       `mapstructure:"temperature" json:"temperature"`
	TopP         float64       `mapstructure:"top_p" json:"top_p"`
	Stop         []string      `mapstructure:"stop" json:"stop"`
}

// EffectiveTemperature is 0 unless sampling is enabled.
func (c ServiceConfig) EffectiveTemperature() float64 {
	if !c.Sampling {
		return 0
	}
	return c.Temperature
}

// EffectiveTopP is 1 unless sampling is enabled.
func (c ServiceConfig) EffectiveTopP() float64 {
	if !c.Sampling || c.TopP <= 0 {
		return 1.0
	}
	return c.TopP
}

// Request is one unit to translate. Prompt is what LLM backends consume;
// Source and the language codes serve MT backends.
type Request struct {
	ID         int    `json:"id"`
	Prompt     string `json:"prompt"`
	Source     string `json:"source"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type Result struct {
	Text     string            `json:"text"`
	Raw      string            `json:"raw"`
	Latency  time.Duration     `json:"latency"`
	Metadata map[string]string `json:"metadata"`
}

// Backend is a loaded model. Generate is called once per unit, in order;
// Close releases whatever loading acquired.
type Backend interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (*Result, error)
	Close() error
}
