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
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/chrf"
	"github.com/valpere/indicmt/internal/config"
	"github.com/valpere/indicmt/internal/dataset"
	"github.com/valpere/indicmt/internal/detector"
	"github.com/valpere/indicmt/internal/evaluator"
	"github.com/valpere/indicmt/internal/orchestrator"
	"github.com/valpere/indicmt/internal/prompt"
	"github.com/valpere/indicmt/internal/store"
	"github.com/valpere/indicmt/internal/translator"
)

func loadConfig() (*config.Config, error) {
	return config.Load(v)
}

// newSource returns the dataset host client, or a local tree when dir is
// set.
func newSource(cfg *config.Config, dir string) dataset.Source {
	if dir != "" {
		return &dataset.DirSource{Root: dir}
	}
	return dataset.NewHubSource(cfg.Dataset)
}

func newGenerator(cfg *config.Config) (*prompt.Generator, error) {
	body, err := prompt.LoadTemplate(cfg.Prompt.Template)
	if err != nil {
		return nil, err
	}
	gen, err := prompt.New(body)
	if err != nil {
		return nil, err
	}
	if cfg.Prompt.MaxTokens > 0 {
		counter, err := prompt.NewTiktokenCounter(cfg.Prompt.Encoding)
		if err != nil {
			return nil, err
		}
		gen.WithTokenBudget(counter, cfg.Prompt.MaxTokens)
	}
	return gen, nil
}

// newEvaluator builds the scorer and, when enabled, an off-target detector
// covering every target language of pairs.
func newEvaluator(cfg *config.Config, pairs []internal.LanguagePair) *evaluator.Evaluator {
	var det *detector.Detector
	if cfg.Eval.OffTarget {
		codes := make([]string, 0, 2*len(pairs))
		for _, p := range pairs {
			codes = append(codes, p.First, p.Second)
		}
		det = detector.New(codes...)
	}
	return evaluator.New(chrf.New(cfg.Eval.Chrf), det)
}

// openHistory opens the run history database, or returns nil when none is
// configured.
func openHistory(cfg *config.Config) (*store.Store, error) {
	if cfg.DB == "" {
		return nil, nil
	}
	db, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func modelLoader(cfg *config.Config) orchestrator.LoadFunc {
	return func(ctx context.Context) (translator.Backend, error) {
		return translator.Load(ctx, cfg.Model)
	}
}

// newOrchestrator wires every stage from cfg. The returned cleanup closes
// the history database.
func newOrchestrator(cfg *config.Config, pairs []internal.LanguagePair, sourceDir string) (*orchestrator.Orchestrator, func(), error) {
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}

	oc := orchestrator.Config{
		Layout:    cfg.Layout(),
		Collector: dataset.NewCollector(newSource(cfg, sourceDir), cfg.Layout(), cfg.NFC),
		Generator: gen,
		Load:      modelLoader(cfg),
		Runner:    cfg.Inference,
		Evaluator: newEvaluator(cfg, pairs),
	}
	cleanup := func() {}
	if db != nil {
		oc.History = db
		cleanup = func() { db.Close() }
	}
	return orchestrator.New(oc), cleanup, nil
}

// explicitDirection resolves --direction for commands run on explicit
// files.
func explicitDirection(direction string) (internal.Direction, error) {
	if direction == "" {
		return internal.Direction{}, fmt.Errorf("--direction is required with explicit file paths")
	}
	return internal.DirectionOf(direction)
}

// reportResult prints failures and turns them into a command error.
func reportResult(report *orchestrator.Report) error {
	for _, s := range report.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped %s/%s: %v\n", s.Split, s.Pair, s.Err)
	}
	if report.OK() {
		return nil
	}
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", f)
	}
	return fmt.Errorf("%d tasks failed", len(report.Failures))
}

func printScores(results []*evaluator.Result) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tDIRECTION\tCHRF\tSEGMENTS\tEMPTY\tOFF-TARGET")
	for _, r := range results {
		offTarget := "-"
		if r.OffTarget >= 0 {
			offTarget = fmt.Sprintf("%d", r.OffTarget)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%s\n", r.Pair, r.Direction, r.ChrF, r.Segments, r.Empty, offTarget)
	}
	w.Flush()
}

func logConfig(cfg *config.Config) {
	log.WithFields(log.Fields{
		"splits":     cfg.Splits,
		"pairs":      len(cfg.Pairs),
		"directions": cfg.Directions,
		"data_root":  cfg.DataRoot,
		"work_root":  cfg.WorkRoot,
	}).Debug("Configuration loaded")
}
