// Package evaluator scores an output file against its reference file and
// records the result in the split's summary table.
package evaluator

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/chrf"
	"github.com/valpere/indicmt/internal/detector"
	"github.com/valpere/indicmt/internal/summary"
	"github.com/valpere/indicmt/internal/textio"
)

// Result is the score of one direction. OffTarget is -1 when the target
// language could not be checked.
type Result struct {
	Pair      string  `json:"pair"`
	Direction string  `json:"direction"`
	ChrF      float64 `json:"chrf"`
	Segments  int     `json:"segments"`
	Empty     int     `json:"empty"`
	OffTarget int     `json:"off_target"`
	Signature string  `json:"signature"`
}

func (r *Result) Row() summary.Row {
	return summary.Row{Pair: r.Pair, Direction: r.Direction, ChrF: r.ChrF}
}

type Evaluator struct {
	scorer   *chrf.Scorer
	detector *detector.Detector
}

// New returns an evaluator. det may be nil to skip off-target detection.
func New(scorer *chrf.Scorer, det *detector.Detector) *Evaluator {
	return &Evaluator{scorer: scorer, detector: det}
}

// Evaluate aligns hypPath with refPath by position and computes corpus
// chrF. Differing line counts are an alignment error and nothing is
// scored.
func (e *Evaluator) Evaluate(hypPath, refPath string, d internal.Direction) (*Result, error) {
	hyps, err := textio.ReadUnits(hypPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read outputs: %w", err)
	}
	refs, err := textio.ReadUnits(refPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read references: %w", err)
	}
	if err := internal.CheckCounts(internal.ErrAlignment, hypPath, len(hyps), refPath, len(refs)); err != nil {
		return nil, err
	}

	score, err := e.scorer.Corpus(hyps, refs)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Pair:      d.Pair.ID(),
		Direction: d.String(),
		ChrF:      score,
		Segments:  len(hyps),
		OffTarget: -1,
		Signature: e.scorer.Signature(),
	}
	for _, h := range hyps {
		if h == "" {
			result.Empty++
		}
	}
	if e.detector != nil && e.detector.Supports(d.Target) {
		result.OffTarget = e.detector.CountOffTarget(hyps, d.Target)
	}

	log.WithFields(log.Fields{
		"pair":       result.Pair,
		"direction":  result.Direction,
		"chrf":       fmt.Sprintf("%.2f", result.ChrF),
		"segments":   result.Segments,
		"empty":      result.Empty,
		"off_target": result.OffTarget,
	}).Info("Evaluated direction")
	return result, nil
}

// Record upserts results into the summary table at path.
func Record(path string, results ...*Result) (*summary.Table, error) {
	rows := make([]summary.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, r.Row())
	}
	table, err := summary.Update(path, rows...)
	if err != nil {
		return nil, fmt.Errorf("failed to update summary %s: %w", path, err)
	}
	return table, nil
}
