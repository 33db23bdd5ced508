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

	"github.com/spf13/cobra"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/config"
	"github.com/valpere/indicmt/internal/evaluator"
	"github.com/valpere/indicmt/internal/orchestrator"
)

var (
	evalInput     string
	evalReference string
	evalDirection string
	evalSummary   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score model outputs against references with chrF",
	Long: `Compute corpus chrF (character 6-grams, beta 2) for every split, pair and
direction and upsert one row per direction into
<work-root>/results/<split>/summary.tsv.

Outputs and references must have the same number of units. Outputs are
also checked for text in the wrong language unless --off-target=false.

With --input, --reference and --direction a single file pair is scored;
add --summary to record the score in a table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logConfig(cfg)

		if evalInput != "" || evalReference != "" {
			return evaluateFiles(cfg)
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
			Layout:    cfg.Layout(),
			Evaluator: newEvaluator(cfg, pairs),
		}
		if db != nil {
			defer db.Close()
			oc.History = db
		}
		o := orchestrator.New(oc)
		o.SetModelLabel(cfg.Model.Backend, cfg.Model.Model)

		report := orchestrator.NewReport()
		if err := o.Evaluate(cmd.Context(), orchestrator.Tasks(cfg.Splits, pairs, cfg.DirectionMode()), report); err != nil {
			return err
		}
		printScores(report.Scores)
		return reportResult(report)
	},
}

func evaluateFiles(cfg *config.Config) error {
	if evalInput == "" || evalReference == "" {
		return fmt.Errorf("--input and --reference must be given together")
	}
	d, err := explicitDirection(evalDirection)
	if err != nil {
		return err
	}

	e := newEvaluator(cfg, []internal.LanguagePair{d.Pair})
	result, err := e.Evaluate(evalInput, evalReference, d)
	if err != nil {
		return err
	}
	printScores([]*evaluator.Result{result})

	if evalSummary != "" {
		if _, err := evaluator.Record(evalSummary, result); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().Bool("off-target", true, "Count outputs written in the wrong language")
	evaluateCmd.Flags().StringVarP(&evalInput, "input", "i", "", "Output file to score")
	evaluateCmd.Flags().StringVarP(&evalReference, "reference", "r", "", "Reference file")
	evaluateCmd.Flags().StringVar(&evalDirection, "direction", "", "Direction of the explicit files, e.g. ben-eng")
	evaluateCmd.Flags().StringVar(&evalSummary, "summary", "", "Summary table to update with the explicit score")
}
