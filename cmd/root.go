/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valpere/indicmt/internal/config"
	"github.com/valpere/indicmt/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string
	envFile string

	v         = config.NewViper()
	logCloser io.Closer
)

// flagKeys maps flag names to configuration keys. Flags are bound when a
// command runs so that commands sharing a flag name do not override each
// other's bindings.
var flagKeys = map[string]string{
	"log-level":      "log.level",
	"log-file":       "log.file",
	"data-root":      "data_root",
	"work-root":      "work_root",
	"splits":         "splits",
	"pairs":          "pairs",
	"directions":     "directions",
	"db":             "db",
	"nfc":            "nfc",
	"dataset":        "dataset.name",
	"endpoint":       "dataset.endpoint",
	"template":       "prompt.template",
	"max-tokens":     "prompt.max_tokens",
	"backend":        "model.backend",
	"model":          "model.name",
	"base-url":       "model.base_url",
	"chat":           "model.chat",
	"sampling":       "model.sampling",
	"max-new-tokens": "model.max_new_tokens",
	"max-attempts":   "inference.max_attempts",
	"timeout":        "inference.timeout",
	"batch-size":     "inference.batch_size",
	"off-target":     "eval.off_target",
	"s3-endpoint":    "publish.endpoint",
	"bucket":         "publish.bucket",
	"prefix":         "publish.prefix",
}

var rootCmd = &cobra.Command{
	Use:   "indicmt",
	Short: "English-Indic machine translation evaluation pipeline",
	Long: `Downloads parallel English-Indic documents, renders translation prompts,
runs a model over them and scores the outputs with chrF.

Stages can be run one at a time:
  indicmt download   stage source and reference documents
  indicmt prompts    render one prompt per source document
  indicmt infer      translate every prompt with the configured model
  indicmt evaluate   score outputs and update the summary table

or all together with "indicmt run".`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return bindErr
		}

		closer, err := logging.Setup(logging.Options{
			Level:      v.GetString("log.level"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
		})
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./indicmt.yaml if present)")
	pf.StringVar(&envFile, "env-file", "", "Dotenv file to load (default ./.env if present)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-file", "", "Also write logs to this rotating file")
	pf.String("data-root", "data", "Root directory of staged datasets")
	pf.String("work-root", "work", "Root directory of prompts, outputs and results")
	pf.StringSlice("splits", nil, "Dataset splits (default dev,test)")
	pf.StringSlice("pairs", nil, "Language pairs such as eng_ben (default: all benchmark pairs)")
	pf.String("directions", "both", "Directions to run: both, en-xx or xx-en")
	pf.String("db", "", "SQLite run history database (empty disables)")
}
