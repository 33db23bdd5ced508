// Package inference drives a loaded backend over a prompt file and writes
// exactly one output unit per prompt.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/prompt"
	"github.com/valpere/indicmt/internal/textio"
	"github.com/valpere/indicmt/internal/translator"
)

type RunnerConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	BatchSize   int           `mapstructure:"batch_size"`
}

const (
	DefaultTimeout     = 120 * time.Second
	DefaultMaxAttempts = 2
	DefaultRetryDelay  = time.Second
	DefaultBatchSize   = 4
)

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		BatchSize:   DefaultBatchSize,
	}
}

// Stats describes one RunFile call. Failures are units that ended as an
// empty placeholder; Retries counts extra attempts across all units.
type Stats struct {
	Prompts  int           `json:"prompts"`
	Failures int           `json:"failures"`
	Retries  int           `json:"retries"`
	Duration time.Duration `json:"duration"`
}

type Runner struct {
	backend translator.Backend
	config  RunnerConfig
}

func New(backend translator.Backend, config RunnerConfig) *Runner {
	defaults := DefaultRunnerConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Runner{backend: backend, config: config}
}

// errEmptyOutput marks a reply that cleaned down to nothing.
var errEmptyOutput = errors.New("empty output")

// Translate produces the output for one record. A unit that fails every
// attempt returns "" with ok=false. The only error returned is the parent
// context's, which aborts the stage.
func (r *Runner) Translate(ctx context.Context, rec prompt.Record) (text string, retries int, ok bool, err error) {
	req := translator.Request{
		ID:         rec.ID,
		Prompt:     rec.Prompt,
		Source:     rec.Source,
		SourceLang: rec.SourceLang,
		TargetLang: rec.TargetLang,
	}

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			retries++
			select {
			case <-ctx.Done():
				return "", retries, false, ctx.Err()
			case <-time.After(r.config.RetryDelay):
			}
		}

		unitCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		res, genErr := r.backend.Generate(unitCtx, req)
		cancel()

		if ctx.Err() != nil {
			return "", retries, false, ctx.Err()
		}
		if genErr == nil && (res == nil || res.Text == "") {
			genErr = errEmptyOutput
		}
		if genErr == nil {
			return res.Text, retries, true, nil
		}

		log.WithFields(log.Fields{
			"unit":    rec.ID,
			"attempt": attempt,
			"backend": r.backend.Name(),
		}).WithError(genErr).Warn("Generation failed")
	}
	return "", retries, false, nil
}

// Run translates records in order and writes one unit line each to w,
// flushing after every batch.
func (r *Runner) Run(ctx context.Context, records []prompt.Record, w io.Writer) (*Stats, error) {
	stats := &Stats{Prompts: len(records)}
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	flusher, _ := w.(interface{ Flush() error })
	for i, rec := range records {
		text, retries, ok, err := r.Translate(ctx, rec)
		stats.Retries += retries
		if err != nil {
			return stats, fmt.Errorf("inference aborted at unit %d: %w", i, err)
		}
		if !ok {
			stats.Failures++
		}

		line, err := textio.EncodeUnit(text)
		if err != nil {
			return stats, fmt.Errorf("failed to encode output %d: %w", i, err)
		}
		if _, err := w.Write(line); err != nil {
			return stats, err
		}

		if (i+1)%r.config.BatchSize == 0 || i == len(records)-1 {
			if flusher != nil {
				if err := flusher.Flush(); err != nil {
					return stats, err
				}
			}
			log.WithFields(log.Fields{
				"done":     i + 1,
				"total":    len(records),
				"failures": stats.Failures,
			}).Debug("Batch complete")
		}
	}
	return stats, nil
}

// RunFile reads a prompt file, writes the output file and verifies that
// both hold the same number of units.
func (r *Runner) RunFile(ctx context.Context, promptPath, outputPath string) (*Stats, error) {
	records, err := prompt.ReadRecords(promptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	var stats *Stats
	err = textio.WriteFile(outputPath, func(w io.Writer) error {
		var runErr error
		stats, runErr = r.Run(ctx, records, w)
		return runErr
	})
	if err != nil {
		return stats, err
	}

	n, err := textio.CountUnits(outputPath)
	if err != nil {
		return stats, err
	}
	if err := internal.CheckCounts(internal.ErrConsistency, promptPath, len(records), outputPath, n); err != nil {
		return stats, err
	}
	return stats, nil
}
