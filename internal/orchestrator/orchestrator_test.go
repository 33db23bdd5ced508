package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/chrf"
	"github.com/valpere/indicmt/internal/dataset"
	"github.com/valpere/indicmt/internal/evaluator"
	"github.com/valpere/indicmt/internal/inference"
	"github.com/valpere/indicmt/internal/prompt"
	"github.com/valpere/indicmt/internal/store"
	"github.com/valpere/indicmt/internal/textio"
	"github.com/valpere/indicmt/internal/translator"
)

var (
	engBen = internal.LanguagePair{First: "eng", Second: "ben"}
	engTam = internal.LanguagePair{First: "eng", Second: "tam"}
)

type fixture struct {
	layout   internal.Layout
	upstream string
	history  *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		layout:   internal.Layout{DataRoot: filepath.Join(dir, "data"), WorkRoot: filepath.Join(dir, "work")},
		upstream: filepath.Join(dir, "upstream"),
	}
	up := internal.Layout{DataRoot: f.upstream}
	require.NoError(t, textio.WriteUnits(up.DocFile("dev", engBen, "eng"), []string{"Good morning.", "How are you?", "See you soon."}))
	require.NoError(t, textio.WriteUnits(up.DocFile("dev", engBen, "ben"), []string{"সুপ্রভাত।", "আপনি কেমন আছেন?", "শীঘ্রই দেখা হবে।"}))

	history, err := store.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })
	f.history = history
	return f
}

func (f *fixture) orchestrator(t *testing.T, load LoadFunc) *Orchestrator {
	t.Helper()
	gen, err := prompt.New("Translate to {{.TargetName}}: {{.Text}}")
	require.NoError(t, err)
	return New(Config{
		Layout:    f.layout,
		Collector: dataset.NewCollector(&dataset.DirSource{Root: f.upstream}, f.layout, false),
		Generator: gen,
		Load:      load,
		Runner:    inference.RunnerConfig{MaxAttempts: 2, BatchSize: 2},
		Evaluator: evaluator.New(chrf.New(chrf.DefaultConfig()), nil),
		History:   f.history,
	})
}

func echoLoader(ctx context.Context) (translator.Backend, error) {
	return translator.Load(ctx, translator.ServiceConfig{Backend: "echo", Stop: []string{"\n\n"}})
}

func TestTasks(t *testing.T) {
	tasks := Tasks([]string{"dev", "test"}, []internal.LanguagePair{engBen, engTam}, internal.DirectionsBoth)
	require.Len(t, tasks, 8)
	assert.Equal(t, Task{Split: "dev", Direction: engBen.Forward()}, tasks[0])
	assert.Equal(t, Task{Split: "dev", Direction: engBen.Reverse()}, tasks[1])
	assert.Equal(t, "test", tasks[7].Split)

	assert.Len(t, Tasks([]string{"dev"}, []internal.LanguagePair{engBen}, internal.DirectionsReverse), 1)
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, echoLoader)

	report, err := o.Run(context.Background(), Options{
		Splits: []string{"dev"},
		Pairs:  []internal.LanguagePair{engBen, engTam},
		Mode:   internal.DirectionsForward,
	})
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", report.Failures)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "eng_tam", report.Skipped[0].Pair)

	d := engBen.Forward()
	records, err := prompt.ReadRecords(f.layout.PromptFile("dev", d))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Translate to Bengali: Good morning.", records[0].Prompt)

	outputs, err := textio.ReadUnits(f.layout.OutputFile("dev", d))
	require.NoError(t, err)
	require.Len(t, outputs, 3)
	for i := range records {
		assert.Equal(t, records[i].Prompt, outputs[i])
	}

	data, err := os.ReadFile(f.layout.SummaryFile("dev"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "pair\tdirection\tchrf", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "eng_ben\teng-ben\t"))

	require.Len(t, report.Scores, 1)
	assert.Equal(t, 3, report.Scores[0].Segments)

	runs, err := f.history.ListEvaluationRuns(context.Background(), store.Filter{Split: "dev"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "echo", runs[0].Backend)

	// A rerun replaces the summary row instead of adding one.
	_, err = o.Run(context.Background(), Options{Splits: []string{"dev"}, Pairs: []internal.LanguagePair{engBen}, Mode: internal.DirectionsForward})
	require.NoError(t, err)
	data, err = os.ReadFile(f.layout.SummaryFile("dev"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestRun_ModelLoadAborts(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, func(ctx context.Context) (translator.Backend, error) {
		return translator.Load(ctx, translator.ServiceConfig{Backend: "nope"})
	})

	_, err := o.Run(context.Background(), Options{
		Splits: []string{"dev"},
		Pairs:  []internal.LanguagePair{engBen},
		Mode:   internal.DirectionsBoth,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, internal.ErrModelLoad))

	_, statErr := os.Stat(f.layout.OutputFile("dev", engBen.Forward()))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_PerPairFailuresContinue(t *testing.T) {
	f := newFixture(t)
	// Stage data directly: eng_tam has only its English side, so tam-eng
	// has no source and eng-tam has no reference.
	staged := f.layout
	require.NoError(t, textio.WriteUnits(staged.DocFile("dev", engBen, "eng"), []string{"a", "b"}))
	require.NoError(t, textio.WriteUnits(staged.DocFile("dev", engBen, "ben"), []string{"a", "b"}))
	require.NoError(t, textio.WriteUnits(staged.DocFile("dev", engTam, "eng"), []string{"x"}))

	o := f.orchestrator(t, echoLoader)
	report, err := o.Run(context.Background(), Options{
		Splits:       []string{"dev"},
		Pairs:        []internal.LanguagePair{engBen, engTam},
		Mode:         internal.DirectionsBoth,
		SkipDownload: true,
	})
	require.NoError(t, err)
	assert.False(t, report.OK())

	stages := map[Stage]int{}
	for _, fl := range report.Failures {
		stages[fl.Stage]++
	}
	assert.Equal(t, 1, stages[StagePrompts])
	assert.Equal(t, 1, stages[StageEvaluate])

	require.Len(t, report.Scores, 2)
	assert.Equal(t, "eng-ben", report.Scores[0].Direction)
	assert.Equal(t, "ben-eng", report.Scores[1].Direction)
}

func TestRun_AlignmentFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, textio.WriteUnits(f.layout.DocFile("dev", engBen, "eng"), []string{"a", "b"}))
	require.NoError(t, textio.WriteUnits(f.layout.DocFile("dev", engBen, "ben"), []string{"a", "b", "c"}))

	o := f.orchestrator(t, echoLoader)
	report, err := o.Run(context.Background(), Options{
		Splits:       []string{"dev"},
		Pairs:        []internal.LanguagePair{engBen},
		Mode:         internal.DirectionsForward,
		SkipDownload: true,
	})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.True(t, errors.Is(report.Failures[0].Err, internal.ErrAlignment))

	_, statErr := os.Stat(f.layout.SummaryFile("dev"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, echoLoader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, Options{Splits: []string{"dev"}, Pairs: []internal.LanguagePair{engBen}, Mode: internal.DirectionsBoth})
	assert.True(t, errors.Is(err, context.Canceled))
}
