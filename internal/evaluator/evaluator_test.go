package evaluator

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/chrf"
	"github.com/valpere/indicmt/internal/detector"
	"github.com/valpere/indicmt/internal/summary"
	"github.com/valpere/indicmt/internal/textio"
)

var engBen = internal.LanguagePair{First: "eng", Second: "ben"}

func writeUnits(t *testing.T, path string, units ...string) string {
	t.Helper()
	require.NoError(t, textio.WriteUnits(path, units))
	return path
}

func TestEvaluate_Identity(t *testing.T) {
	dir := t.TempDir()
	units := []string{"আমি ভাত খাই।", "সে বই পড়ে।", "আজ বৃষ্টি হবে।"}
	hyp := writeUnits(t, filepath.Join(dir, "hyp.jsonl"), units...)
	ref := writeUnits(t, filepath.Join(dir, "ref.jsonl"), units...)

	e := New(chrf.New(chrf.DefaultConfig()), nil)
	result, err := e.Evaluate(hyp, ref, engBen.Forward())
	require.NoError(t, err)

	assert.InDelta(t, 100.0, result.ChrF, 1e-9)
	assert.Equal(t, "eng_ben", result.Pair)
	assert.Equal(t, "eng-ben", result.Direction)
	assert.Equal(t, 3, result.Segments)
	assert.Equal(t, -1, result.OffTarget)
}

func TestEvaluate_AlignmentError(t *testing.T) {
	dir := t.TempDir()
	hyp := writeUnits(t, filepath.Join(dir, "hyp.jsonl"), "a", "b")
	ref := writeUnits(t, filepath.Join(dir, "ref.jsonl"), "a", "b", "c")

	e := New(chrf.New(chrf.DefaultConfig()), nil)
	_, err := e.Evaluate(hyp, ref, engBen.Forward())
	require.Error(t, err)
	assert.True(t, errors.Is(err, internal.ErrAlignment))
}

func TestEvaluate_CountsEmptyAndOffTarget(t *testing.T) {
	dir := t.TempDir()
	hyp := writeUnits(t, filepath.Join(dir, "hyp.jsonl"),
		"আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।",
		"The weather is pleasant in the hills this morning.",
		"",
	)
	ref := writeUnits(t, filepath.Join(dir, "ref.jsonl"),
		"আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।",
		"আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।",
		"আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।",
	)

	e := New(chrf.New(chrf.DefaultConfig()), detector.New("ben"))
	result, err := e.Evaluate(hyp, ref, engBen.Forward())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Empty)
	assert.Equal(t, 1, result.OffTarget)
	assert.Less(t, result.ChrF, 100.0)
}

func TestRecord_Upserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv")

	_, err := Record(path, &Result{Pair: "eng_ben", Direction: "eng-ben", ChrF: 10})
	require.NoError(t, err)
	table, err := Record(path,
		&Result{Pair: "eng_ben", Direction: "eng-ben", ChrF: 12},
		&Result{Pair: "eng_ben", Direction: "ben-eng", ChrF: 20},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	reloaded, err := summary.Load(path)
	require.NoError(t, err)
	row, ok := reloaded.Get("eng_ben", "eng-ben")
	require.True(t, ok)
	assert.Equal(t, 12.0, row.ChrF)
}
