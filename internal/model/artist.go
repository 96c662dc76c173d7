package model

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// MinPopularity is the lowest popularity score the API reports.
	MinPopularity = 0
	// MaxPopularity is the highest popularity score the API reports.
	MaxPopularity = 100
)

// Artist is a complete artist record as emitted to the output sink.
// It is created once per unique identifier, the first time complete data is
// observed, and is never updated afterwards.
type Artist struct {
	// ID is the API's artist identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Popularity is a score in [MinPopularity, MaxPopularity].
	Popularity int `json:"popularity"`

	// Genres is the set of genre labels. Order carries no meaning.
	Genres []string `json:"genres"`
}

// NewArtist builds an Artist, clamping popularity into range and normalizing
// the genre set.
func NewArtist(id, name string, popularity int, genres []string) Artist {
	return Artist{
		ID:         id,
		Name:       strings.TrimSpace(name),
		Popularity: clampPopularity(popularity),
		Genres:     NormalizeGenres(genres),
	}
}

// Key returns the dedup key under which a complete record is tracked.
func (a Artist) Key() string {
	return ArtistKey(a.ID)
}

// ArtistKey returns the dedup key for a complete artist record.
func ArtistKey(id string) string {
	return "artist:" + id
}

// RefKey returns the dedup key for an artist that was only referenced by ID
// and has been handed to the batch aggregator.
func RefKey(id string) string {
	return "ref:" + id
}

// NormalizeGenres returns genre labels in Unicode NFC form, trimmed, with
// empty and duplicate labels removed. The result is sorted so that records
// serialize identically regardless of the order the API returned them in.
func NormalizeGenres(genres []string) []string {
	if len(genres) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(norm.NFC.String(g))
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func clampPopularity(p int) int {
	if p < MinPopularity {
		return MinPopularity
	}
	if p > MaxPopularity {
		return MaxPopularity
	}
	return p
}
