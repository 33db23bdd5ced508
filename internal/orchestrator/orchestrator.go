// Package orchestrator runs the four pipeline stages over every configured
// split, pair and direction, isolating per-pair failures.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/dataset"
	"github.com/valpere/indicmt/internal/evaluator"
	"github.com/valpere/indicmt/internal/inference"
	"github.com/valpere/indicmt/internal/prompt"
	"github.com/valpere/indicmt/internal/store"
	"github.com/valpere/indicmt/internal/translator"
)

type Stage string

const (
	StageDownload Stage = "download"
	StagePrompts  Stage = "prompts"
	StageInfer    Stage = "infer"
	StageEvaluate Stage = "evaluate"
)

// Task is one direction of one split.
type Task struct {
	Split     string
	Direction internal.Direction
}

func (t Task) fields() log.Fields {
	return log.Fields{"split": t.Split, "pair": t.Direction.Pair.ID(), "direction": t.Direction.String()}
}

// Tasks expands splits × pairs × directions in that order.
func Tasks(splits []string, pairs []internal.LanguagePair, mode internal.DirectionMode) []Task {
	var tasks []Task
	for _, split := range splits {
		for _, p := range pairs {
			for _, d := range p.Directions(mode) {
				tasks = append(tasks, Task{Split: split, Direction: d})
			}
		}
	}
	return tasks
}

type Failure struct {
	Stage     Stage
	Split     string
	Pair      string
	Direction string
	Err       error
}

func (f Failure) Error() string {
	target := f.Pair
	if f.Direction != "" {
		target = f.Direction
	}
	return fmt.Sprintf("%s %s/%s: %v", f.Stage, f.Split, target, f.Err)
}

// Report collects what every stage did. Skipped pairs had no data on the
// host and are not failures.
type Report struct {
	Download  *dataset.Report
	Prompts   map[Task]*prompt.Stats
	Inference map[Task]*inference.Stats
	Scores    []*evaluator.Result
	Skipped   []Failure
	Failures  []Failure
}

func NewReport() *Report {
	return &Report{
		Prompts:   make(map[Task]*prompt.Stats),
		Inference: make(map[Task]*inference.Stats),
	}
}

func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) fail(stage Stage, t Task, err error) {
	log.WithFields(t.fields()).WithField("stage", stage).WithError(err).Error("Stage failed")
	r.Failures = append(r.Failures, Failure{
		Stage:     stage,
		Split:     t.Split,
		Pair:      t.Direction.Pair.ID(),
		Direction: t.Direction.String(),
		Err:       err,
	})
}

// History records runs; *store.Store satisfies it.
type History interface {
	SaveInferenceRun(ctx context.Context, run *store.InferenceRun) error
	SaveEvaluationRun(ctx context.Context, run *store.EvaluationRun) error
}

// LoadFunc acquires the model backend for the inference stage.
type LoadFunc func(ctx context.Context) (translator.Backend, error)

type Config struct {
	Layout    internal.Layout
	Collector *dataset.Collector
	Generator *prompt.Generator
	Load      LoadFunc
	Runner    inference.RunnerConfig
	Evaluator *evaluator.Evaluator
	History   History
}

type Orchestrator struct {
	config Config

	backendName string
	modelName   string
}

func New(config Config) *Orchestrator {
	return &Orchestrator{config: config}
}

type Options struct {
	Splits       []string
	Pairs        []internal.LanguagePair
	Mode         internal.DirectionMode
	SkipDownload bool
}

// Run executes download, prompts, infer and evaluate. The returned error
// is non-nil only for run-wide aborts: a model that cannot be loaded or a
// cancelled context. Per-pair problems are in the report.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	report := NewReport()
	tasks := Tasks(opts.Splits, opts.Pairs, opts.Mode)

	if !opts.SkipDownload {
		if err := o.Download(ctx, opts.Splits, opts.Pairs, report); err != nil {
			return report, err
		}
		tasks = withoutUnstaged(tasks, report)
	}

	tasks = o.GeneratePrompts(tasks, report)

	tasks, err := o.Infer(ctx, tasks, report)
	if err != nil {
		return report, err
	}

	if err := o.Evaluate(ctx, tasks, report); err != nil {
		return report, err
	}
	return report, nil
}

// Download stages data and records skipped and failed pairs.
func (o *Orchestrator) Download(ctx context.Context, splits []string, pairs []internal.LanguagePair, report *Report) error {
	dl, err := o.config.Collector.Collect(ctx, splits, pairs)
	report.Download = dl
	if err != nil {
		return err
	}
	for _, p := range dl.Skipped {
		report.Skipped = append(report.Skipped, Failure{Stage: StageDownload, Split: p.Split, Pair: p.Pair.ID(), Err: p.Err})
	}
	for _, p := range dl.Failed {
		report.Failures = append(report.Failures, Failure{Stage: StageDownload, Split: p.Split, Pair: p.Pair.ID(), Err: p.Err})
	}
	return nil
}

func withoutUnstaged(tasks []Task, report *Report) []Task {
	staged := make(map[string]bool)
	if report.Download != nil {
		for _, e := range report.Download.Collected {
			staged[e.Split+"/"+e.Pair.ID()] = true
		}
	}
	kept := tasks[:0:0]
	for _, t := range tasks {
		if staged[t.Split+"/"+t.Direction.Pair.ID()] {
			kept = append(kept, t)
		}
	}
	return kept
}

// GeneratePrompts writes the prompt file of every task and returns the
// tasks that succeeded.
func (o *Orchestrator) GeneratePrompts(tasks []Task, report *Report) []Task {
	layout := o.config.Layout
	var ok []Task
	for _, t := range tasks {
		stats, err := o.config.Generator.GenerateFile(
			layout.SourceFile(t.Split, t.Direction),
			layout.PromptFile(t.Split, t.Direction),
			t.Direction,
		)
		if err != nil {
			report.fail(StagePrompts, t, err)
			continue
		}
		report.Prompts[t] = stats
		log.WithFields(t.fields()).WithField("prompts", stats.Prompts).Info("Prompts written")
		ok = append(ok, t)
	}
	return ok
}

// Infer loads the backend once, runs every task and closes the backend.
// A load failure or cancellation aborts the stage.
func (o *Orchestrator) Infer(ctx context.Context, tasks []Task, report *Report) ([]Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	backend, err := o.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Warn("Failed to close backend")
		}
	}()

	o.SetModelLabel(backend.Name(), backend.Model())
	runner := inference.New(backend, o.config.Runner)
	layout := o.config.Layout
	var ok []Task
	for _, t := range tasks {
		stats, err := runner.RunFile(ctx, layout.PromptFile(t.Split, t.Direction), layout.OutputFile(t.Split, t.Direction))
		if err != nil {
			if ctx.Err() != nil {
				return ok, ctx.Err()
			}
			report.fail(StageInfer, t, err)
			continue
		}
		report.Inference[t] = stats
		log.WithFields(t.fields()).WithFields(log.Fields{
			"prompts":  stats.Prompts,
			"failures": stats.Failures,
			"retries":  stats.Retries,
			"duration": stats.Duration.Round(time.Millisecond),
		}).Info("Inference complete")

		if o.config.History != nil {
			run := &store.InferenceRun{
				Split:     t.Split,
				Pair:      t.Direction.Pair.ID(),
				Direction: t.Direction.String(),
				Backend:   backend.Name(),
				Model:     backend.Model(),
				Prompts:   stats.Prompts,
				Failures:  stats.Failures,
				Retries:   stats.Retries,
				Duration:  stats.Duration,
			}
			if err := o.config.History.SaveInferenceRun(ctx, run); err != nil {
				log.WithError(err).Warn("Failed to record inference run")
			}
		}
		ok = append(ok, t)
	}
	return ok, nil
}

// Evaluate scores every task and upserts one summary row per direction
// into its split's table.
func (o *Orchestrator) Evaluate(ctx context.Context, tasks []Task, report *Report) error {
	layout := o.config.Layout
	bySplit := make(map[string][]*evaluator.Result)
	var splits []string

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := o.config.Evaluator.Evaluate(
			layout.OutputFile(t.Split, t.Direction),
			layout.ReferenceFile(t.Split, t.Direction),
			t.Direction,
		)
		if err != nil {
			report.fail(StageEvaluate, t, err)
			continue
		}
		if _, seen := bySplit[t.Split]; !seen {
			splits = append(splits, t.Split)
		}
		bySplit[t.Split] = append(bySplit[t.Split], result)
		report.Scores = append(report.Scores, result)

		if o.config.History != nil {
			run := &store.EvaluationRun{
				Split:     t.Split,
				Pair:      result.Pair,
				Direction: result.Direction,
				ChrF:      result.ChrF,
				Segments:  result.Segments,
				OffTarget: result.OffTarget,
				Signature: result.Signature,
				Backend:   o.backendName,
				Model:     o.modelName,
			}
			if err := o.config.History.SaveEvaluationRun(ctx, run); err != nil {
				log.WithError(err).Warn("Failed to record evaluation run")
			}
		}
	}

	var errs []error
	for _, split := range splits {
		if _, err := evaluator.Record(layout.SummaryFile(split), bySplit[split]...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetModelLabel names the backend and model recorded with evaluations
// when inference ran in an earlier invocation.
func (o *Orchestrator) SetModelLabel(backend, model string) {
	o.backendName, o.modelName = backend, model
}
