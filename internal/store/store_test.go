package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/history.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveInferenceRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &InferenceRun{
		Split:     "dev",
		Pair:      "eng_ben",
		Direction: "eng-ben",
		Backend:   "ollama",
		Model:     "llama3",
		Prompts:   10,
		Failures:  1,
		Retries:   2,
		Duration:  1500 * time.Millisecond,
	}
	if err := s.SaveInferenceRun(ctx, run); err != nil {
		t.Fatalf("SaveInferenceRun failed: %v", err)
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		t.Errorf("expected a UUID run id, got %q", run.ID)
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	runs, err := s.ListInferenceRuns(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListInferenceRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Prompts != 10 || got.Failures != 1 || got.Retries != 2 {
		t.Errorf("unexpected run %+v", got)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s, got %v", got.Duration)
	}
}

func TestStore_EvaluationHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	runs := []*EvaluationRun{
		{Split: "dev", Pair: "eng_ben", Direction: "eng-ben", Backend: "echo", Model: "echo", ChrF: 20, Segments: 3, OffTarget: -1, CreatedAt: base},
		{Split: "dev", Pair: "eng_ben", Direction: "eng-ben", Backend: "ollama", Model: "llama3", ChrF: 41.5, Segments: 3, OffTarget: 1, CreatedAt: base.Add(time.Hour)},
		{Split: "dev", Pair: "eng_hin", Direction: "hin-eng", Backend: "ollama", Model: "llama3", ChrF: 55, Segments: 3, CreatedAt: base.Add(2 * time.Hour)},
		{Split: "test", Pair: "eng_ben", Direction: "eng-ben", Backend: "ollama", Model: "llama3", ChrF: 39, Segments: 5, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, r := range runs {
		if err := s.SaveEvaluationRun(ctx, r); err != nil {
			t.Fatalf("SaveEvaluationRun failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "all", filter: Filter{}, want: 4},
		{name: "by split", filter: Filter{Split: "dev"}, want: 3},
		{name: "by direction", filter: Filter{Split: "dev", Pair: "eng_ben", Direction: "eng-ben"}, want: 2},
		{name: "limited", filter: Filter{Limit: 1}, want: 1},
		{name: "no match", filter: Filter{Pair: "eng_tam"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEvaluationRuns(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListEvaluationRuns failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d runs, got %d", tt.want, len(got))
			}
		})
	}

	latest, ok, err := s.LatestEvaluation(ctx, "dev", "eng_ben", "eng-ben")
	if err != nil || !ok {
		t.Fatalf("LatestEvaluation failed: ok=%v err=%v", ok, err)
	}
	if latest.Model != "llama3" || latest.ChrF != 41.5 || latest.OffTarget != 1 {
		t.Errorf("unexpected latest run %+v", latest)
	}

	_, ok, err = s.LatestEvaluation(ctx, "dev", "eng_tam", "eng-tam")
	if err != nil || ok {
		t.Errorf("expected no run, got ok=%v err=%v", ok, err)
	}
}
