package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/artistscan/internal/database"
)

func TestStatsCommand(t *testing.T) {
	t.Parallel()

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "stats", "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No crawl runs recorded.") {
			t.Errorf("unexpected output %q", out)
		}
		if !strings.Contains(out, "Visited set (sqlite): 0 artists") {
			t.Errorf("expected visited count, got %q", out)
		}
	})

	t.Run("lists stored runs and shows one", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := database.Open(dir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		run := &database.RunRecord{
			ID:           "run-42",
			StartedAt:    start,
			FinishedAt:   start.Add(2 * time.Minute),
			Target:       100,
			Workers:      2,
			Emitted:      100,
			Requests:     31,
			StopReason:   "target_reached",
			KindRequests: map[string]int{"artists": 2, "playlist_tracks": 20},
		}
		if err := db.SaveRun(context.Background(), run); err != nil {
			t.Fatal(err)
		}
		if err := db.Close(); err != nil {
			t.Fatal(err)
		}

		out, err := execute(t, "stats", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "run-42") || !strings.Contains(out, "target_reached") {
			t.Errorf("expected run in listing, got %q", out)
		}

		detail, err := execute(t, "stats", "--db-dir", dir, "run-42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(detail, "playlist_tracks") || !strings.Contains(detail, "Artists:     100") {
			t.Errorf("unexpected detail %q", detail)
		}

		if _, err := execute(t, "stats", "--db-dir", dir, "missing"); err == nil {
			t.Error("expected error for unknown run")
		}
	})
}
