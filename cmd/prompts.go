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

	"github.com/valpere/indicmt/internal/orchestrator"
)

var (
	promptsInput     string
	promptsOutput    string
	promptsDirection string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Render one translation prompt per source document",
	Long: `Render prompts for every split, pair and direction into
<work-root>/prompts/<split>/<src>_<tgt>.jsonl.

With --input, --output and --direction a single source file is processed.
Templates use Go text/template syntax with the fields .SourceLang,
.TargetLang, .SourceName, .TargetName, .Text and .Index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}

		if promptsInput != "" || promptsOutput != "" {
			if promptsInput == "" || promptsOutput == "" {
				return fmt.Errorf("--input and --output must be given together")
			}
			d, err := explicitDirection(promptsDirection)
			if err != nil {
				return err
			}
			stats, err := gen.GenerateFile(promptsInput, promptsOutput, d)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%d prompts\n", d, stats.Prompts)
			return nil
		}

		pairs, err := cfg.LanguagePairs()
		if err != nil {
			return err
		}
		o := orchestrator.New(orchestrator.Config{Layout: cfg.Layout(), Generator: gen})
		report := orchestrator.NewReport()
		for _, t := range o.GeneratePrompts(orchestrator.Tasks(cfg.Splits, pairs, cfg.DirectionMode()), report) {
			fmt.Printf("%s\t%s\t%d prompts\n", t.Split, t.Direction, report.Prompts[t].Prompts)
		}
		return reportResult(report)
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)

	promptsCmd.Flags().String("template", "", "Prompt template file (default built-in)")
	promptsCmd.Flags().Int("max-tokens", 0, "Warn about prompts longer than this many tokens (0 disables)")
	promptsCmd.Flags().StringVarP(&promptsInput, "input", "i", "", "Source unit file")
	promptsCmd.Flags().StringVarP(&promptsOutput, "output", "o", "", "Prompt file to write")
	promptsCmd.Flags().StringVar(&promptsDirection, "direction", "", "Direction of the explicit file, e.g. eng-ben")
}
