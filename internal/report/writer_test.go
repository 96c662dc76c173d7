package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/artistscan/internal/crawler"
	"github.com/nao1215/artistscan/internal/database"
	"github.com/nao1215/artistscan/internal/model"
	"github.com/nao1215/artistscan/internal/score"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *Summary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stats := crawler.Stats{
		StartedAt:   start,
		FinishedAt:  start.Add(90 * time.Second),
		StopReason:  crawler.StopTarget,
		Workers:     4,
		Target:      200,
		Emitted:     200,
		Requests:    57,
		Retries:     3,
		RateLimited: 2,
		Abandoned:   1,
		KindRequests: map[model.EndpointKind]int64{
			model.KindArtists:        20,
			model.KindPlaylistTracks: 30,
			model.KindCategories:     7,
		},
		KindAbandoned: map[model.EndpointKind]int64{
			model.KindPlaylistTracks: 1,
		},
		Scores: []score.KindStats{
			{Kind: model.KindCategories, Samples: 7, Average: 0, Tier: model.TierSecondary},
			{Kind: model.KindPlaylistTracks, Samples: 29, Average: 12.5, Tier: model.TierPrimary},
			{Kind: model.KindArtists, Samples: 20, Average: 48, Tier: model.TierPrimary},
		},
	}
	return NewSummary("run-1", "v1.0.0", "artists.csv", stats)
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := createTestSummary()
	if s.DurationSeconds != 90 {
		t.Errorf("expected 90s, got %v", s.DurationSeconds)
	}
	if s.StopReason != "target_reached" {
		t.Errorf("unexpected stop reason %q", s.StopReason)
	}
	if len(s.Kinds) != 3 {
		t.Fatalf("expected 3 kinds, got %d", len(s.Kinds))
	}
	if s.Kinds[1].Requests != 30 || s.Kinds[1].Abandoned != 1 || s.Kinds[1].Tier != "primary" {
		t.Errorf("unexpected kind summary: %+v", s.Kinds[1])
	}

	busiest := s.busiestKinds()
	if busiest[0].Kind != "playlist_tracks" {
		t.Errorf("expected playlist_tracks first, got %s", busiest[0].Kind)
	}

	rec := s.RunRecord()
	if rec.ID != "run-1" || rec.Emitted != 200 || rec.KindRequests["artists"] != 20 {
		t.Errorf("unexpected run record: %+v", rec)
	}
}

// TestSimpleWriter tests the human-readable summary writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"ARTISTSCAN RUN SUMMARY", "run-1", "ARTISTS:      200", "target_reached", "200 artists"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "ENDPOINTS") {
			t.Error("endpoint table should only appear in verbose mode")
		}
	})

	t.Run("verbose writes endpoint table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "playlist_tracks") {
			t.Error("expected endpoint kinds in verbose output")
		}
	})
}

// TestJSONWriter tests the JSON summary writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output is valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["run_id"] != "run-1" {
			t.Errorf("unexpected run_id: %v", decoded["run_id"])
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("compact output should be a single line")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"run_id\"") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown summary writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Artistscan Run Summary", "## Counters", "## Endpoints", "```mermaid", "Requests by Endpoint", "[!IMPORTANT]"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("no chart without requests", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		s := NewSummary("run-2", "", "out.csv", crawler.Stats{StopReason: crawler.StopDrained})
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if strings.Contains(output, "```mermaid") {
			t.Error("chart should be omitted when nothing was requested")
		}
		if !strings.Contains(output, "No endpoint statistics recorded.") {
			t.Error("expected empty endpoint notice")
		}
	})
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestSummary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

func TestWriteHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := WriteHistory(&buf, nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No crawl runs recorded.") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("lists runs", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		runs := []database.RunRecord{
			{ID: "run-b", StartedAt: start, FinishedAt: start.Add(time.Minute), Emitted: 10, StopReason: "drained"},
			{ID: "run-a", StartedAt: start, FinishedAt: start.Add(time.Second), Fresh: true, StopReason: "canceled"},
		}

		var buf bytes.Buffer
		if _, err := WriteHistory(&buf, runs); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 lines, got %d", len(lines))
		}
		if !strings.HasPrefix(lines[1], "run-b") || !strings.Contains(lines[1], "1m0s") {
			t.Errorf("unexpected line %q", lines[1])
		}
	})
}
