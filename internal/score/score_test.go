package score

import (
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/artistscan/internal/model"
)

func TestScore(t *testing.T) {
	t.Parallel()

	artist := model.NewArtist("a", "A", 10, nil)
	tests := []struct {
		name     string
		ex       model.Extraction
		expected float64
	}{
		{name: "empty", ex: model.Extraction{}, expected: 0},
		{
			name:     "complete only",
			ex:       model.Extraction{Artists: []model.Artist{artist, artist, artist}},
			expected: 3,
		},
		{
			name:     "incomplete only",
			ex:       model.Extraction{Incomplete: []string{"x", "y", "z"}},
			expected: 1.5,
		},
		{
			name: "mixed ignores follow-ups",
			ex: model.Extraction{
				Artists:    []model.Artist{artist, artist, artist},
				Incomplete: []string{"x", "y"},
				FollowUps:  []model.Task{model.NewTask(model.KindAlbum, "al")},
			},
			expected: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Score(tt.ex); got != tt.expected {
				t.Errorf("Score() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultTableIsValid(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	if table.Tier(model.KindArtists) != model.TierPrimary {
		t.Error("batch lookups must be primary")
	}
	if table.Tier(model.KindGenreSeeds) != model.TierSecondary {
		t.Error("genre seed listing should be secondary")
	}
}

func TestTableValidate(t *testing.T) {
	t.Parallel()

	withBadKind := DefaultTable()
	withBadKind["search"] = model.TierPrimary

	withBadTier := DefaultTable()
	withBadTier[model.KindAlbum] = model.Tier(9)

	missing := DefaultTable()
	delete(missing, model.KindCategories)

	tests := []struct {
		name    string
		table   Table
		wantErr error
	}{
		{name: "unknown kind", table: withBadKind, wantErr: ErrUnknownKind},
		{name: "unknown tier", table: withBadTier, wantErr: ErrUnknownTier},
		{name: "missing kind", table: missing, wantErr: ErrMissingKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.table.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestTableWithOverrides(t *testing.T) {
	t.Parallel()

	t.Run("applies overrides without touching the base", func(t *testing.T) {
		t.Parallel()

		base := DefaultTable()
		out, err := base.WithOverrides(map[string]string{
			"genre_seeds": "primary",
			"artists":     " Secondary ",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Tier(model.KindGenreSeeds) != model.TierPrimary {
			t.Error("override for genre_seeds not applied")
		}
		if out.Tier(model.KindArtists) != model.TierSecondary {
			t.Error("override for artists not applied")
		}
		if base.Tier(model.KindGenreSeeds) != model.TierSecondary {
			t.Error("base table was modified")
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		t.Parallel()
		_, err := DefaultTable().WithOverrides(map[string]string{"search": "primary"})
		if !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind, got %v", err)
		}
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		t.Parallel()
		_, err := DefaultTable().WithOverrides(map[string]string{"album": "urgent"})
		if !errors.Is(err, ErrUnknownTier) {
			t.Errorf("expected ErrUnknownTier, got %v", err)
		}
	})
}

func TestClassifierStatic(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil)
	if c.Adaptive() {
		t.Fatal("classifier should be static by default")
	}
	for range 10 {
		c.Record(model.KindGenreSeeds, 100)
	}
	if c.Tier(model.KindGenreSeeds) != model.TierSecondary {
		t.Error("static classifier must not promote kinds")
	}
}

func TestClassifierAdaptive(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultTable(), WithAdaptive(true), WithThreshold(4), WithMinSamples(3))

	// Below the sample minimum the static tier holds.
	c.Record(model.KindGenreSeeds, 10)
	c.Record(model.KindGenreSeeds, 10)
	if c.Tier(model.KindGenreSeeds) != model.TierSecondary {
		t.Error("kind promoted before reaching min samples")
	}

	c.Record(model.KindGenreSeeds, 10)
	if c.Tier(model.KindGenreSeeds) != model.TierPrimary {
		t.Error("kind with high average should be promoted")
	}

	for range 3 {
		c.Record(model.KindPlaylistTracks, 0)
	}
	if c.Tier(model.KindPlaylistTracks) != model.TierSecondary {
		t.Error("kind with low average should be demoted")
	}

	for range 3 {
		c.Record(model.KindArtists, 0)
	}
	if c.Tier(model.KindArtists) != model.TierPrimary {
		t.Error("batch lookups must stay primary")
	}
}

func TestClassifierSnapshot(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil)
	c.Record(model.KindAlbum, 2)
	c.Record(model.KindAlbum, 4)

	snap := c.Snapshot()
	if len(snap) != len(model.AllKinds()) {
		t.Fatalf("expected %d entries, got %d", len(model.AllKinds()), len(snap))
	}
	for _, ks := range snap {
		switch ks.Kind {
		case model.KindAlbum:
			if ks.Samples != 2 || ks.Average != 3 {
				t.Errorf("album stats = %+v", ks)
			}
		default:
			if ks.Samples != 0 {
				t.Errorf("%s should have no samples, got %d", ks.Kind, ks.Samples)
			}
		}
	}
}

func TestClassifierConcurrent(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, WithAdaptive(true))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Record(model.KindAlbum, 1)
				_ = c.Tier(model.KindAlbum)
			}
		}()
	}
	wg.Wait()

	for _, ks := range c.Snapshot() {
		if ks.Kind == model.KindAlbum && ks.Samples != 800 {
			t.Errorf("expected 800 samples, got %d", ks.Samples)
		}
	}
}
