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
	"github.com/spf13/cobra"

	"github.com/valpere/indicmt/internal/orchestrator"
)

var (
	runSkipDownload bool
	runSourceDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run download, prompts, infer and evaluate in sequence",
	Long: `Run the whole pipeline for every configured split, pair and direction.

Pairs without data are skipped. Other per-pair failures are reported and
the remaining pairs continue; the command exits non-zero if any failed.
A model that cannot be loaded aborts the run after prompts are written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logConfig(cfg)
		pairs, err := cfg.LanguagePairs()
		if err != nil {
			return err
		}

		o, cleanup, err := newOrchestrator(cfg, pairs, runSourceDir)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := o.Run(cmd.Context(), orchestrator.Options{
			Splits:       cfg.Splits,
			Pairs:        pairs,
			Mode:         cfg.DirectionMode(),
			SkipDownload: runSkipDownload,
		})
		printScores(report.Scores)
		if err != nil {
			return err
		}
		return reportResult(report)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.BoolVar(&runSkipDownload, "skip-download", false, "Use the already staged data")
	f.StringVar(&runSourceDir, "from-dir", "", "Stage from a local tree instead of the dataset host")
	f.Bool("nfc", false, "Normalize documents to Unicode NFC")
	f.String("template", "", "Prompt template file (default built-in)")
	f.Int("max-tokens", 0, "Warn about prompts longer than this many tokens (0 disables)")
	f.Bool("off-target", true, "Count outputs written in the wrong language")
	addModelFlags(runCmd)
}
