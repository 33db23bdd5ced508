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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/indicmt/internal/inference"
	"github.com/valpere/indicmt/internal/orchestrator"
	"github.com/valpere/indicmt/internal/translator"
)

var (
	inferInput  string
	inferOutput string
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Translate every prompt with the configured model",
	Long: `Load the model once and translate every prompt file into
<work-root>/outputs/<split>/<src>_<tgt>.jsonl, one output per prompt.

Each unit is attempted up to --max-attempts times. A unit that still fails
or comes back empty is written as an empty placeholder so outputs stay
aligned with their references. A model that cannot be loaded aborts the
command before any output is written.

With --input and --output a single prompt file is translated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logConfig(cfg)
		ctx := cmd.Context()

		if inferInput != "" || inferOutput != "" {
			if inferInput == "" || inferOutput == "" {
				return fmt.Errorf("--input and --output must be given together")
			}
			backend, err := translator.Load(ctx, cfg.Model)
			if err != nil {
				return err
			}
			defer backend.Close()

			stats, err := inference.New(backend, cfg.Inference).RunFile(ctx, inferInput, inferOutput)
			if err != nil {
				return err
			}
			fmt.Printf("%d prompts, %d failures, %d retries in %s\n",
				stats.Prompts, stats.Failures, stats.Retries, stats.Duration.Round(time.Millisecond))
			return nil
		}

		pairs, err := cfg.LanguagePairs()
		if err != nil {
			return err
		}
		db, err := openHistory(cfg)
		if err != nil {
			return err
		}
		oc := orchestrator.Config{
			Layout: cfg.Layout(),
			Load:   modelLoader(cfg),
			Runner: cfg.Inference,
		}
		if db != nil {
			defer db.Close()
			oc.History = db
		}

		report := orchestrator.NewReport()
		done, err := orchestrator.New(oc).Infer(ctx, orchestrator.Tasks(cfg.Splits, pairs, cfg.DirectionMode()), report)
		if err != nil {
			return err
		}
		for _, t := range done {
			s := report.Inference[t]
			fmt.Printf("%s\t%s\t%d prompts\t%d failures\n", t.Split, t.Direction, s.Prompts, s.Failures)
		}
		return reportResult(report)
	},
}

// addModelFlags registers the flags selecting and driving the backend.
func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("backend", "ollama", fmt.Sprintf("Model backend %v", translator.Backends))
	f.String("model", "", "Model name on the backend")
	f.String("base-url", "", "Backend server URL")
	f.Bool("chat", false, "Send prompts as chat messages")
	f.Bool("sampling", false, "Sample instead of greedy decoding")
	f.Int("max-new-tokens", 0, "Upper bound on generated tokens per unit")
	f.Int("max-attempts", inference.DefaultMaxAttempts, "Attempts per unit before writing a placeholder")
	f.Duration("timeout", inference.DefaultTimeout, "Per-attempt timeout")
	f.Int("batch-size", inference.DefaultBatchSize, "Units written between output flushes")
}

func init() {
	rootCmd.AddCommand(inferCmd)

	addModelFlags(inferCmd)
	inferCmd.Flags().StringVarP(&inferInput, "input", "i", "", "Prompt file")
	inferCmd.Flags().StringVarP(&inferOutput, "output", "o", "", "Output file to write")
}
