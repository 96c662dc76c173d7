package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*CrawlDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %q, got %q", dbPath, db.Path())
		}
		if err := db.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected error to contain %q, got %q", "database not found", err.Error())
		}
	})

	t.Run("reopening keeps visited keys", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if _, err := db.MarkVisited(ctx, "artist:1"); err != nil {
			t.Fatalf("failed to mark: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		ok, err := db.IsVisited(ctx, "artist:1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Error("expected key to survive reopen")
		}
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

// TestVisited tests visited set operations.
func TestVisited(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("first mark inserts and second does not", func(t *testing.T) {
		inserted, err := db.MarkVisited(ctx, "playlist_tracks:p1")
		if err != nil {
			t.Fatalf("failed to mark: %v", err)
		}
		if !inserted {
			t.Error("expected first mark to insert")
		}

		inserted, err = db.MarkVisited(ctx, "playlist_tracks:p1")
		if err != nil {
			t.Fatalf("failed to mark: %v", err)
		}
		if inserted {
			t.Error("expected second mark to be ignored")
		}
	})

	t.Run("is visited", func(t *testing.T) {
		ok, err := db.IsVisited(ctx, "playlist_tracks:p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Error("expected key to be visited")
		}

		ok, err = db.IsVisited(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected unknown key to be unvisited")
		}
	})

	t.Run("count and clear", func(t *testing.T) {
		if _, err := db.MarkVisited(ctx, "album:a1"); err != nil {
			t.Fatalf("failed to mark: %v", err)
		}

		n, err := db.CountVisited(ctx)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 keys, got %d", n)
		}

		if err := db.ClearVisited(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}

		n, err = db.CountVisited(ctx)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 keys after clear, got %d", n)
		}
	})
}

// TestMarkVisitedConcurrent tests that exactly one concurrent caller inserts a key.
func TestMarkVisitedConcurrent(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	const goroutines = 32
	var (
		wg       sync.WaitGroup
		inserted atomic.Int32
	)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := db.MarkVisited(ctx, "artist:same")
			if err != nil {
				t.Errorf("failed to mark: %v", err)
				return
			}
			if ok {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := inserted.Load(); got != 1 {
		t.Errorf("expected exactly 1 insertion, got %d", got)
	}
}

// TestRuns tests run history operations.
func TestRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := range 3 {
		run := &RunRecord{
			ID:           fmt.Sprintf("run-%d", i),
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			FinishedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
			Fresh:        i == 0,
			Target:       100,
			Workers:      4,
			Emitted:      10 * i,
			Requests:     20 * i,
			Retries:      i,
			Abandoned:    0,
			StopReason:   "target reached",
			KindRequests: map[string]int{"artists": i},
		}
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run %d: %v", i, err)
		}
	}

	t.Run("list newest first", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != "run-2" {
			t.Errorf("expected newest run first, got %q", runs[0].ID)
		}
		if runs[0].Duration() != time.Minute {
			t.Errorf("expected duration 1m, got %v", runs[0].Duration())
		}
	})

	t.Run("list with limit", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})

	t.Run("get by id", func(t *testing.T) {
		run, err := db.GetRun(ctx, "run-0")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if run == nil {
			t.Fatal("expected run, got nil")
		}
		if !run.Fresh {
			t.Error("expected fresh run")
		}
		if !run.StartedAt.Equal(base) {
			t.Errorf("expected start %v, got %v", base, run.StartedAt)
		}
		if run.KindRequests["artists"] != 0 {
			t.Errorf("unexpected kind requests: %v", run.KindRequests)
		}
		if run.StopReason != "target reached" {
			t.Errorf("unexpected stop reason %q", run.StopReason)
		}
	})

	t.Run("get returns nil for unknown id", func(t *testing.T) {
		run, err := db.GetRun(ctx, "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run != nil {
			t.Error("expected nil for unknown run")
		}
	})
}

// TestParseTimestamp tests timestamp parsing fallbacks.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in     string
		isZero bool
	}{
		{"2026-01-02 03:04:05", false},
		{"2026-01-02T03:04:05Z", false},
		{"2026-01-02T03:04:05.123456789Z", false},
		{"garbage", true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tc.in); got.IsZero() != tc.isZero {
				t.Errorf("parseTimestamp(%q) = %v", tc.in, got)
			}
		})
	}
}
