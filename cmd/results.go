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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/indicmt/internal/store"
	"github.com/valpere/indicmt/internal/summary"
)

var (
	historySplit     string
	historyPair      string
	historyDirection string
	historyLimit     int
	historyInference bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show summary tables and run history",
}

var resultsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the chrF summary table of each split",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		layout := cfg.Layout()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SPLIT\tPAIR\tDIRECTION\tCHRF")
		for _, split := range cfg.Splits {
			table, err := summary.Load(layout.SummaryFile(split))
			if err != nil {
				return err
			}
			for _, r := range table.Rows() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", split, r.Pair, r.Direction, r.ChrF)
			}
		}
		return w.Flush()
	},
}

var resultsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs from the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openHistory(cfg)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("no history database configured (use --db)")
		}
		defer db.Close()

		filter := store.Filter{
			Split:     historySplit,
			Pair:      historyPair,
			Direction: historyDirection,
			Limit:     historyLimit,
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		if historyInference {
			runs, err := db.ListInferenceRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "WHEN\tSPLIT\tDIRECTION\tBACKEND\tMODEL\tPROMPTS\tFAILURES\tRETRIES\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.CreatedAt.Local().Format(time.DateTime), r.Split, r.Direction, r.Backend, r.Model,
					r.Prompts, r.Failures, r.Retries, r.Duration.Round(time.Second))
			}
			return w.Flush()
		}

		runs, err := db.ListEvaluationRuns(cmd.Context(), filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "WHEN\tSPLIT\tDIRECTION\tBACKEND\tMODEL\tCHRF\tSEGMENTS\tOFF-TARGET")
		for _, r := range runs {
			offTarget := "-"
			if r.OffTarget >= 0 {
				offTarget = fmt.Sprintf("%d", r.OffTarget)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\t%s\n",
				r.CreatedAt.Local().Format(time.DateTime), r.Split, r.Direction, r.Backend, r.Model,
				r.ChrF, r.Segments, offTarget)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsShowCmd, resultsHistoryCmd)

	f := resultsHistoryCmd.Flags()
	f.StringVar(&historySplit, "split", "", "Only this split, e.g. dev")
	f.StringVar(&historyPair, "pair", "", "Only this pair, e.g. eng_ben")
	f.StringVar(&historyDirection, "direction", "", "Only this direction, e.g. eng-ben")
	f.IntVar(&historyLimit, "limit", 20, "Maximum rows (0 for all)")
	f.BoolVar(&historyInference, "inference", false, "List inference runs instead of evaluations")
}
