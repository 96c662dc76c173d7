package score

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nao1215/artistscan/internal/model"
)

// Table maps every endpoint kind to a queue tier.
type Table map[model.EndpointKind]model.Tier

// DefaultTable returns the built-in classification. Kinds whose responses
// carry full artist objects or long lists of artist references are primary.
// Listings that only lead to further listings are secondary.
func DefaultTable() Table {
	return Table{
		model.KindArtists:           model.TierPrimary,
		model.KindRelatedArtists:    model.TierPrimary,
		model.KindRecommendations:   model.TierPrimary,
		model.KindPlaylistTracks:    model.TierPrimary,
		model.KindAlbum:             model.TierSecondary,
		model.KindArtistAlbums:      model.TierSecondary,
		model.KindCategoryPlaylists: model.TierSecondary,
		model.KindCategories:        model.TierSecondary,
		model.KindGenreSeeds:        model.TierSecondary,
	}
}

// Validate checks that the table classifies every known kind into a known tier.
func (t Table) Validate() error {
	for kind, tier := range t {
		if _, ok := model.ParseEndpointKind(string(kind)); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		if tier != model.TierPrimary && tier != model.TierSecondary {
			return fmt.Errorf("%w: %d for %s", ErrUnknownTier, tier, kind)
		}
	}
	for _, kind := range model.AllKinds() {
		if _, ok := t[kind]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingKind, kind)
		}
	}
	return nil
}

// Tier returns the tier for kind. Unclassified kinds are secondary.
func (t Table) Tier(kind model.EndpointKind) model.Tier {
	if tier, ok := t[kind]; ok {
		return tier
	}
	return model.TierSecondary
}

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	return maps.Clone(t)
}

// WithOverrides returns a copy of the table with entries replaced by the
// given kind name to tier name pairs, as read from a config file.
func (t Table) WithOverrides(overrides map[string]string) (Table, error) {
	out := t.Clone()
	if out == nil {
		out = Table{}
	}

	// Sorted so the first reported error is deterministic.
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		kind, ok := model.ParseEndpointKind(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
		}
		tier, ok := model.ParseTier(overrides[name])
		if !ok {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownTier, overrides[name], name)
		}
		out[kind] = tier
	}
	return out, nil
}
