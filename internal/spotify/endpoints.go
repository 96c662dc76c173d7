package spotify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/artistscan/internal/model"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// DefaultTokenURL is the Spotify accounts token endpoint.
const DefaultTokenURL = "https://accounts.spotify.com/api/token" //nolint:gosec // not a credential

// MaxBatchIDs is the largest number of ids the batch artist endpoint accepts.
const MaxBatchIDs = 50

// Endpoint describes how to call one endpoint kind.
type Endpoint struct {
	// Kind is the endpoint kind served.
	Kind model.EndpointKind

	// Path is the URL path below the API root. "{id}" is replaced with the
	// task id.
	Path string

	// IDParam, when set, passes the task id as this query parameter instead
	// of a path segment.
	IDParam string

	// BatchParam, when set, passes the task ids comma-joined as this query
	// parameter.
	BatchParam string

	// BatchLimit is the maximum number of ids per batch call.
	BatchLimit int

	// PageSize is the "limit" query parameter for paginated listings.
	// Zero means the endpoint is not paginated.
	PageSize int

	// Extra holds fixed query parameters.
	Extra url.Values
}

// Endpoints is the static endpoint table.
var Endpoints = map[model.EndpointKind]Endpoint{
	model.KindGenreSeeds: {
		Kind: model.KindGenreSeeds,
		Path: "/recommendations/available-genre-seeds",
	},
	model.KindCategories: {
		Kind:     model.KindCategories,
		Path:     "/browse/categories",
		PageSize: 50,
	},
	model.KindCategoryPlaylists: {
		Kind:     model.KindCategoryPlaylists,
		Path:     "/browse/categories/{id}/playlists",
		PageSize: 50,
	},
	model.KindPlaylistTracks: {
		Kind:     model.KindPlaylistTracks,
		Path:     "/playlists/{id}/tracks",
		PageSize: 100,
	},
	model.KindAlbum: {
		Kind: model.KindAlbum,
		Path: "/albums/{id}",
	},
	model.KindArtistAlbums: {
		Kind:     model.KindArtistAlbums,
		Path:     "/artists/{id}/albums",
		PageSize: 50,
	},
	model.KindRelatedArtists: {
		Kind: model.KindRelatedArtists,
		Path: "/artists/{id}/related-artists",
	},
	model.KindRecommendations: {
		Kind:    model.KindRecommendations,
		Path:    "/recommendations",
		IDParam: "seed_genres",
		Extra:   url.Values{"limit": []string{"100"}},
	},
	model.KindArtists: {
		Kind:       model.KindArtists,
		Path:       "/artists",
		BatchParam: "ids",
		BatchLimit: MaxBatchIDs,
	},
}

// Roots returns the tasks a crawl starts from.
func Roots() []model.Task {
	return []model.Task{
		model.NewTask(model.KindGenreSeeds, ""),
		model.NewTask(model.KindCategories, ""),
	}
}

// needsID reports whether the endpoint takes a single id.
func (e Endpoint) needsID() bool {
	return e.IDParam != "" || strings.Contains(e.Path, "{id}")
}

// URL builds the request URL for task below base.
func (e Endpoint) URL(base string, task model.Task) (string, error) {
	path := e.Path
	query := url.Values{}
	for k, v := range e.Extra {
		query[k] = append([]string(nil), v...)
	}

	switch {
	case e.BatchParam != "":
		if len(task.IDs) == 0 {
			return "", fmt.Errorf("%w: %s", ErrMissingID, task.Kind)
		}
		if e.BatchLimit > 0 && len(task.IDs) > e.BatchLimit {
			return "", fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(task.IDs), e.BatchLimit)
		}
		query.Set(e.BatchParam, strings.Join(task.IDs, ","))
	case e.needsID():
		if task.ID == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingID, task.Kind)
		}
		if e.IDParam != "" {
			query.Set(e.IDParam, task.ID)
		} else {
			path = strings.ReplaceAll(path, "{id}", url.PathEscape(task.ID))
		}
	}

	if e.PageSize > 0 {
		query.Set("limit", strconv.Itoa(e.PageSize))
		if task.Offset > 0 {
			query.Set("offset", strconv.Itoa(task.Offset))
		}
	}

	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

// EndpointFor returns the endpoint definition for kind.
func EndpointFor(kind model.EndpointKind) (Endpoint, error) {
	e, ok := Endpoints[kind]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, kind)
	}
	return e, nil
}
