// Package config assembles the run configuration from defaults, an
// optional config file, a .env file, INDICMT_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/artifacts"
	"github.com/valpere/indicmt/internal/chrf"
	"github.com/valpere/indicmt/internal/dataset"
	"github.com/valpere/indicmt/internal/inference"
	"github.com/valpere/indicmt/internal/lang"
	"github.com/valpere/indicmt/internal/logging"
	"github.com/valpere/indicmt/internal/translator"
)

const EnvPrefix = "INDICMT"

type PromptConfig struct {
	Template  string `mapstructure:"template"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Encoding  string `mapstructure:"encoding"`
}

type EvalConfig struct {
	Chrf      chrf.Config `mapstructure:"chrf"`
	OffTarget bool        `mapstructure:"off_target"`
}

type Config struct {
	DataRoot   string   `mapstructure:"data_root"`
	WorkRoot   string   `mapstructure:"work_root"`
	Splits     []string `mapstructure:"splits"`
	Pairs      []string `mapstructure:"pairs"`
	Directions string   `mapstructure:"directions"`
	NFC        bool     `mapstructure:"nfc"`
	DB         string   `mapstructure:"db"`

	Dataset   dataset.HubConfig        `mapstructure:"dataset"`
	Prompt    PromptConfig             `mapstructure:"prompt"`
	Model     translator.ServiceConfig `mapstructure:"model"`
	Inference inference.RunnerConfig   `mapstructure:"inference"`
	Eval      EvalConfig               `mapstructure:"eval"`
	Publish   artifacts.Config         `mapstructure:"publish"`
	Log       logging.Options          `mapstructure:"log"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_root", "data")
	v.SetDefault("work_root", "work")
	v.SetDefault("splits", internal.DefaultSplits)
	v.SetDefault("pairs", internal.DefaultPairs)
	v.SetDefault("directions", string(internal.DirectionsBoth))
	v.SetDefault("nfc", false)
	v.SetDefault("db", "")

	v.SetDefault("dataset.endpoint", dataset.DefaultEndpoint)
	v.SetDefault("dataset.name", dataset.DefaultDataset)
	v.SetDefault("dataset.token", "")
	v.SetDefault("dataset.src_field", "src_txt")
	v.SetDefault("dataset.tgt_field", "tgt_txt")
	v.SetDefault("dataset.page_size", 100)
	v.SetDefault("dataset.timeout", "60s")
	v.SetDefault("dataset.retries", 3)

	v.SetDefault("prompt.template", "")
	v.SetDefault("prompt.max_tokens", 0)
	v.SetDefault("prompt.encoding", "cl100k_base")

	v.SetDefault("model.backend", "ollama")
	v.SetDefault("model.name", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.credentials", "")
	v.SetDefault("model.project_id", "")
	v.SetDefault("model.chat", false)
	v.SetDefault("model.timeout", "120s")
	v.SetDefault("model.max_new_tokens", 256)
	v.SetDefault("model.sampling", false)
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.top_p", 0.9)
	v.SetDefault("model.stop", []string{"\n\n"})

	v.SetDefault("inference.timeout", inference.DefaultTimeout)
	v.SetDefault("inference.max_attempts", inference.DefaultMaxAttempts)
	v.SetDefault("inference.retry_delay", inference.DefaultRetryDelay)
	v.SetDefault("inference.batch_size", inference.DefaultBatchSize)

	v.SetDefault("eval.chrf.char_order", chrf.DefaultCharOrder)
	v.SetDefault("eval.chrf.beta", chrf.DefaultBeta)
	v.SetDefault("eval.chrf.whitespace", false)
	v.SetDefault("eval.off_target", true)

	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("publish.create_bucket", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// NewViper returns a viper instance with defaults and environment binding.
// HF_TOKEN and OPENAI_API_KEY are honoured as fallbacks for the dataset
// token and model API key.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("dataset.token", EnvPrefix+"_DATASET_TOKEN", "HF_TOKEN")
	v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY")
	v.BindEnv("model.credentials", EnvPrefix+"_MODEL_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS")
	return v
}

// LoadDotEnv loads path (or ./.env when empty) into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ReadFile merges a YAML, TOML or JSON config file into v. An empty path
// looks for indicmt.* in the working directory and tolerates its absence.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName("indicmt")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects malformed pair ids and unknown language codes before
// any stage runs.
func (c *Config) Validate() error {
	if len(c.Splits) == 0 {
		return fmt.Errorf("at least one split is required")
	}
	pairs, err := c.LanguagePairs()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		for _, code := range []string{p.First, p.Second} {
			if err := lang.Validate(code); err != nil {
				return fmt.Errorf("pair %s: %w", p.ID(), err)
			}
		}
	}
	if _, err := internal.ParseDirectionMode(c.Directions); err != nil {
		return err
	}
	if c.Inference.MaxAttempts < 1 {
		return fmt.Errorf("inference.max_attempts must be at least 1")
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = inference.DefaultTimeout
	}
	return nil
}

func (c *Config) LanguagePairs() ([]internal.LanguagePair, error) {
	return internal.ParsePairs(c.Pairs)
}

func (c *Config) DirectionMode() internal.DirectionMode {
	mode, _ := internal.ParseDirectionMode(c.Directions)
	return mode
}

func (c *Config) Layout() internal.Layout {
	return internal.Layout{DataRoot: c.DataRoot, WorkRoot: c.WorkRoot}
}
