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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/valpere/indicmt/internal/artifacts"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload prompts, outputs and summary tables to S3-compatible storage",
	Long: `Upload the prompts, outputs and results directories of every configured
split to a bucket. Object keys mirror the paths under --work-root, below
the optional --prefix. Credentials are read from publish.access_key and
publish.secret_key or INDICMT_PUBLISH_ACCESS_KEY and
INDICMT_PUBLISH_SECRET_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		pub, err := artifacts.New(ctx, cfg.Publish)
		if err != nil {
			return err
		}

		layout := cfg.Layout()
		total := 0
		for _, split := range cfg.Splits {
			for _, dir := range []string{layout.PromptsDir(split), layout.OutputsDir(split), layout.ResultsDir(split)} {
				uploads, err := pub.PublishDir(ctx, layout.WorkRoot, dir)
				if err != nil {
					return err
				}
				total += len(uploads)
			}
		}
		log.WithField("bucket", cfg.Publish.Bucket).Infof("Published %d files", total)
		fmt.Printf("Published %d files to %s\n", total, cfg.Publish.Bucket)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	f := publishCmd.Flags()
	f.String("s3-endpoint", "", "S3-compatible endpoint, e.g. localhost:9000")
	f.String("bucket", "", "Destination bucket")
	f.String("prefix", "", "Key prefix inside the bucket")
}
