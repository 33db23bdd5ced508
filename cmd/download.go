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

	"github.com/valpere/indicmt/internal/dataset"
	"github.com/valpere/indicmt/internal/orchestrator"
)

var downloadSourceDir string

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Stage source and reference documents for every split and pair",
	Long: `Fetch parallel documents from the dataset host and write them as
<data-root>/<split>/<pair>/doc.<lang>.jsonl, one document per line.

Pairs the host does not have are skipped with a warning. Any other
per-pair error is reported and makes the command exit non-zero after the
remaining pairs have been fetched.`,
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

		collector := dataset.NewCollector(newSource(cfg, downloadSourceDir), cfg.Layout(), cfg.NFC)
		o := orchestrator.New(orchestrator.Config{Layout: cfg.Layout(), Collector: collector})

		report := orchestrator.NewReport()
		if err := o.Download(cmd.Context(), cfg.Splits, pairs, report); err != nil {
			return err
		}
		for _, e := range report.Download.Collected {
			fmt.Printf("%s\t%s\t%d documents\n", e.Split, e.Pair.ID(), e.Documents)
		}
		return reportResult(report)
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().Bool("nfc", false, "Normalize documents to Unicode NFC")
	downloadCmd.Flags().String("dataset", dataset.DefaultDataset, "Dataset name on the host")
	downloadCmd.Flags().String("endpoint", dataset.DefaultEndpoint, "Dataset rows API endpoint")
	downloadCmd.Flags().StringVar(&downloadSourceDir, "from-dir", "", "Copy from a local staged tree instead of the dataset host")
}
