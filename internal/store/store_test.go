package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/doctran/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(lang, status string, started time.Time) internal.TranslationRun {
	return internal.TranslationRun{
		InputPath:  "/docs/report.docx",
		OutputPath: "/docs/report_" + lang + ".docx",
		TargetLang: lang,
		ModelID:    "Helsinki-NLP/opus-mt-en-" + lang,
		Chunks:     2,
		Status:     status,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := s.SaveRun(ctx, testRun("fr", internal.RunSucceeded, started))
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated ID")
	}

	run, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.TargetLang != "fr" || run.Chunks != 2 || run.Status != internal.RunSucceeded {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.OutputPath != "/docs/report_fr.docx" {
		t.Errorf("unexpected output path %q", run.OutputPath)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("expected started_at %v, got %v", started, run.StartedAt)
	}
}

func TestStore_SaveRun_KeepsGivenID(t *testing.T) {
	s := newTestStore(t)

	run := testRun("de", internal.RunFailed, time.Now())
	run.ID = "fixed-id"
	run.ErrorKind = internal.TranslationFailure.String()
	run.Error = "Error during translation: timeout"

	id, err := s.SaveRun(context.Background(), run)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("expected fixed-id, got %q", id)
	}

	got, err := s.GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ErrorKind != "translation_failure" || got.Error != run.Error {
		t.Errorf("unexpected error fields: %+v", got)
	}
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, lang := range []string{"de", "fr", "es"} {
		if _, err := s.SaveRun(ctx, testRun(lang, internal.RunSucceeded, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].TargetLang != "es" || runs[2].TargetLang != "de" {
		t.Errorf("expected newest first, got %s..%s", runs[0].TargetLang, runs[2].TargetLang)
	}

	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.SaveRun(ctx, testRun("de", internal.RunSucceeded, now))
	s.SaveRun(ctx, testRun("de", internal.RunFailed, now))
	s.SaveRun(ctx, testRun("pl", internal.RunSucceeded, now))

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRuns != 3 || stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.TotalChunks != 6 {
		t.Errorf("expected 6 chunks, got %d", stats.TotalChunks)
	}
	if stats.ByLanguage["de"] != 2 || stats.ByLanguage["pl"] != 1 {
		t.Errorf("unexpected per-language counts: %v", stats.ByLanguage)
	}
}

func TestStore_Stats_Empty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRuns != 0 || len(stats.ByLanguage) != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.SaveRun(ctx, testRun("it", internal.RunSucceeded, time.Now()))

	if err := s.DeleteRun(ctx, id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.GetRun(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected run to be gone, got %v", err)
	}
	if err := s.DeleteRun(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_ClearRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveRun(ctx, testRun("nl", internal.RunSucceeded, time.Now()))
	s.SaveRun(ctx, testRun("ru", internal.RunFailed, time.Now()))

	n, err := s.ClearRuns(ctx)
	if err != nil {
		t.Fatalf("ClearRuns failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cleared, got %d", n)
	}

	runs, _ := s.ListRuns(ctx, 0)
	if len(runs) != 0 {
		t.Errorf("expected empty history, got %d runs", len(runs))
	}
}
