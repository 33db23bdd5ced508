package dataset

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/textio"
)

// Entry is one staged (split, pair).
type Entry struct {
	Split     string
	Pair      internal.LanguagePair
	Documents int
}

// Problem is a (split, pair) that was not staged, with the reason.
type Problem struct {
	Split string
	Pair  internal.LanguagePair
	Err   error
}

// Report summarises a collection run. Skipped holds DataUnavailable pairs;
// Failed holds every other per-pair error.
type Report struct {
	Collected []Entry
	Skipped   []Problem
	Failed    []Problem
}

// Collector writes the two sides of each fetched pair under the layout's
// data root.
type Collector struct {
	source    Source
	layout    internal.Layout
	normalize bool
}

// NewCollector creates a Collector. When normalize is set both sides are
// converted to Unicode NFC before writing.
func NewCollector(source Source, layout internal.Layout, normalize bool) *Collector {
	return &Collector{source: source, layout: layout, normalize: normalize}
}

// Collect stages every split × pair. Per-pair problems are reported, not
// returned; the error is non-nil only when ctx is cancelled.
func (c *Collector) Collect(ctx context.Context, splits []string, pairs []internal.LanguagePair) (*Report, error) {
	report := &Report{}
	log.WithField("source", c.source.Name()).Infof("collecting %d pairs × %d splits", len(pairs), len(splits))

	for _, split := range splits {
		for _, pair := range pairs {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			entry := log.WithFields(log.Fields{"split": split, "pair": pair.ID()})

			n, err := c.CollectOne(ctx, split, pair)
			switch {
			case err == nil:
				entry.Infof("staged %d documents", n)
				report.Collected = append(report.Collected, Entry{Split: split, Pair: pair, Documents: n})
			case errors.Is(err, internal.ErrDataUnavailable):
				entry.Warnf("skipping: %v", err)
				report.Skipped = append(report.Skipped, Problem{Split: split, Pair: pair, Err: err})
			case ctx.Err() != nil:
				return report, ctx.Err()
			default:
				entry.Errorf("collection failed: %v", err)
				report.Failed = append(report.Failed, Problem{Split: split, Pair: pair, Err: err})
			}
		}
	}
	return report, nil
}

// CollectOne fetches and writes a single (split, pair) and returns the
// number of documents staged.
func (c *Collector) CollectOne(ctx context.Context, split string, pair internal.LanguagePair) (int, error) {
	par, err := c.source.Fetch(ctx, split, pair)
	if err != nil {
		return 0, err
	}

	firstPath := c.layout.DocFile(split, pair, pair.First)
	secondPath := c.layout.DocFile(split, pair, pair.Second)
	if err := internal.CheckCounts(internal.ErrConsistency, firstPath, len(par.First), secondPath, len(par.Second)); err != nil {
		return 0, err
	}

	first, second := par.First, par.Second
	if c.normalize {
		first, second = normalizeAll(first), normalizeAll(second)
	}

	if err := textio.WriteUnits(firstPath, first); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", firstPath, err)
	}
	if err := textio.WriteUnits(secondPath, second); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", secondPath, err)
	}
	return len(first), nil
}

func normalizeAll(units []string) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = norm.NFC.String(u)
	}
	return out
}
