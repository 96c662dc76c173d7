package model

import (
	"strconv"
	"strings"
)

// EndpointKind identifies a category of API call. All tasks of one kind share
// a tier classification and a response shape.
type EndpointKind string

const (
	// KindGenreSeeds lists the available genre seeds. Root endpoint.
	KindGenreSeeds EndpointKind = "genre_seeds"
	// KindCategories lists browse categories. Root endpoint.
	KindCategories EndpointKind = "categories"
	// KindCategoryPlaylists lists the playlists of one browse category.
	KindCategoryPlaylists EndpointKind = "category_playlists"
	// KindPlaylistTracks lists the tracks of one playlist.
	KindPlaylistTracks EndpointKind = "playlist_tracks"
	// KindAlbum fetches one album including its track listing.
	KindAlbum EndpointKind = "album"
	// KindArtistAlbums lists the albums of one artist.
	KindArtistAlbums EndpointKind = "artist_albums"
	// KindRelatedArtists lists artists related to one artist.
	KindRelatedArtists EndpointKind = "related_artists"
	// KindRecommendations fetches track recommendations for one genre seed.
	KindRecommendations EndpointKind = "recommendations"
	// KindArtists is the batch artist lookup.
	KindArtists EndpointKind = "artists"
)

// AllKinds returns every known endpoint kind in a stable order.
func AllKinds() []EndpointKind {
	return []EndpointKind{
		KindGenreSeeds,
		KindCategories,
		KindCategoryPlaylists,
		KindPlaylistTracks,
		KindAlbum,
		KindArtistAlbums,
		KindRelatedArtists,
		KindRecommendations,
		KindArtists,
	}
}

// ParseEndpointKind converts a string into a known EndpointKind.
func ParseEndpointKind(s string) (EndpointKind, bool) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// String returns the kind name.
func (k EndpointKind) String() string {
	return string(k)
}

// Tier is the priority lane a task is queued in.
type Tier int

const (
	// TierPrimary holds high information density work. Always drained first.
	TierPrimary Tier = iota
	// TierSecondary holds low information density work.
	TierSecondary
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	default:
		return unknownStr
	}
}

// ParseTier converts "primary" or "secondary" into a Tier.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return TierPrimary, true
	case "secondary":
		return TierSecondary, true
	default:
		return 0, false
	}
}

// unknownStr is the string representation for unknown values.
const unknownStr = "unknown"

// Task is a unit of crawl work: one request against one endpoint with its
// parameters bound. Tasks are values and are never mutated after creation.
type Task struct {
	// Kind is the endpoint kind.
	Kind EndpointKind `json:"kind"`

	// ID is the path parameter (playlist ID, album ID, genre, ...).
	// Empty for root listings.
	ID string `json:"id,omitempty"`

	// IDs holds the identifiers of a batch lookup.
	IDs []string `json:"ids,omitempty"`

	// Offset is the pagination offset.
	Offset int `json:"offset,omitempty"`
}

// NewTask creates a task for a single-resource endpoint.
func NewTask(kind EndpointKind, id string) Task {
	return Task{Kind: kind, ID: id}
}

// NewBatchTask creates a batch lookup task. The ids slice is copied.
func NewBatchTask(kind EndpointKind, ids []string) Task {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return Task{Kind: kind, IDs: cp}
}

// WithOffset returns a copy of the task targeting another page.
func (t Task) WithOffset(offset int) Task {
	t.IDs = append([]string(nil), t.IDs...)
	t.Offset = offset
	return t
}

// IsBatch reports whether the task is a multi-identifier lookup.
func (t Task) IsBatch() bool {
	return len(t.IDs) > 0
}

// Key returns the resource identifier for this task. Two tasks with the same
// key are duplicates regardless of how they were discovered.
func (t Task) Key() string {
	var b strings.Builder
	b.WriteString(string(t.Kind))
	if t.ID != "" {
		b.WriteByte(':')
		b.WriteString(t.ID)
	}
	if t.IsBatch() {
		b.WriteByte(':')
		b.WriteString(strings.Join(t.IDs, ","))
	}
	if t.Offset > 0 {
		b.WriteByte('@')
		b.WriteString(strconv.Itoa(t.Offset))
	}
	return b.String()
}

// String returns a short description for logs.
func (t Task) String() string {
	if t.IsBatch() {
		return string(t.Kind) + "[" + strconv.Itoa(len(t.IDs)) + " ids]"
	}
	return t.Key()
}

// Extraction is what one successful response yields.
type Extraction struct {
	// Artists are complete records found directly in the response.
	Artists []Artist

	// Incomplete are artist IDs referenced without full data.
	Incomplete []string

	// FollowUps are further endpoints discovered in the response.
	FollowUps []Task
}

// IsEmpty reports whether nothing was extracted.
func (e Extraction) IsEmpty() bool {
	return len(e.Artists) == 0 && len(e.Incomplete) == 0 && len(e.FollowUps) == 0
}
