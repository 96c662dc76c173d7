package spotify

import (
	"encoding/json"
	"fmt"

	"github.com/nao1215/artistscan/internal/model"
)

// artistObject covers both the full and the simplified artist object. Only
// the full object carries popularity.
type artistObject struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Popularity *int     `json:"popularity"`
	Genres     []string `json:"genres"`
}

type idObject struct {
	ID string `json:"id"`
}

type trackObject struct {
	Artists []artistObject `json:"artists"`
	Album   *struct {
		ID      string         `json:"id"`
		Artists []artistObject `json:"artists"`
	} `json:"album"`
}

type page[T any] struct {
	Items []*T   `json:"items"`
	Next  string `json:"next"`
}

// extractor accumulates one response's extraction, dropping duplicate ids
// within the response.
type extractor struct {
	ex         model.Extraction
	artists    map[string]struct{}
	incomplete map[string]struct{}
	followUps  map[string]struct{}
}

func newExtractor() *extractor {
	return &extractor{
		artists:    make(map[string]struct{}),
		incomplete: make(map[string]struct{}),
		followUps:  make(map[string]struct{}),
	}
}

// artist records a full object as complete and a simplified one as a reference.
func (e *extractor) artist(a *artistObject) {
	if a == nil || a.ID == "" {
		return
	}
	if a.Popularity == nil {
		e.reference(a.ID)
		return
	}
	if _, ok := e.artists[a.ID]; ok {
		return
	}
	e.artists[a.ID] = struct{}{}
	e.ex.Artists = append(e.ex.Artists, model.NewArtist(a.ID, a.Name, *a.Popularity, a.Genres))

	// A complete artist opens up its neighborhood.
	e.followUp(model.NewTask(model.KindRelatedArtists, a.ID))
	e.followUp(model.NewTask(model.KindArtistAlbums, a.ID))
}

func (e *extractor) reference(id string) {
	if id == "" {
		return
	}
	if _, ok := e.artists[id]; ok {
		return
	}
	if _, ok := e.incomplete[id]; ok {
		return
	}
	e.incomplete[id] = struct{}{}
	e.ex.Incomplete = append(e.ex.Incomplete, id)
}

func (e *extractor) followUp(task model.Task) {
	if task.ID == "" && !task.IsBatch() {
		return
	}
	key := task.Key()
	if _, ok := e.followUps[key]; ok {
		return
	}
	e.followUps[key] = struct{}{}
	e.ex.FollowUps = append(e.ex.FollowUps, task)
}

func (e *extractor) track(t *trackObject) {
	if t == nil {
		return
	}
	for i := range t.Artists {
		e.artist(&t.Artists[i])
	}
	if t.Album != nil {
		for i := range t.Album.Artists {
			e.artist(&t.Album.Artists[i])
		}
		if t.Album.ID != "" {
			e.followUp(model.NewTask(model.KindAlbum, t.Album.ID))
		}
	}
}

// nextPage queues the following page of a paginated listing.
func (e *extractor) nextPage(task model.Task, next string) {
	if next == "" {
		return
	}
	endpoint, err := EndpointFor(task.Kind)
	if err != nil || endpoint.PageSize == 0 {
		return
	}
	following := task.WithOffset(task.Offset + endpoint.PageSize)
	key := following.Key()
	if _, ok := e.followUps[key]; ok {
		return
	}
	e.followUps[key] = struct{}{}
	e.ex.FollowUps = append(e.ex.FollowUps, following)
}

// result finalizes incomplete references: an id that also appeared as a
// full object in the same response is not a reference.
func (e *extractor) result() model.Extraction {
	if len(e.ex.Incomplete) > 0 && len(e.artists) > 0 {
		refs := e.ex.Incomplete[:0]
		for _, id := range e.ex.Incomplete {
			if _, ok := e.artists[id]; !ok {
				refs = append(refs, id)
			}
		}
		e.ex.Incomplete = refs
	}
	return e.ex
}

// Parse turns a successful response body for task into an Extraction.
func Parse(task model.Task, body []byte) (model.Extraction, error) {
	e := newExtractor()

	var err error
	switch task.Kind {
	case model.KindGenreSeeds:
		err = parseGenreSeeds(e, body)
	case model.KindCategories:
		err = parseCategories(e, task, body)
	case model.KindCategoryPlaylists:
		err = parseCategoryPlaylists(e, task, body)
	case model.KindPlaylistTracks:
		err = parsePlaylistTracks(e, task, body)
	case model.KindAlbum:
		err = parseAlbum(e, body)
	case model.KindArtistAlbums:
		err = parseArtistAlbums(e, task, body)
	case model.KindRelatedArtists, model.KindArtists:
		err = parseArtists(e, body)
	case model.KindRecommendations:
		err = parseRecommendations(e, body)
	default:
		return model.Extraction{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, task.Kind)
	}
	if err != nil {
		return model.Extraction{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, task.Kind, err)
	}
	return e.result(), nil
}

func parseGenreSeeds(e *extractor, body []byte) error {
	var resp struct {
		Genres []string `json:"genres"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, g := range resp.Genres {
		e.followUp(model.NewTask(model.KindRecommendations, g))
	}
	return nil
}

func parseCategories(e *extractor, task model.Task, body []byte) error {
	var resp struct {
		Categories page[idObject] `json:"categories"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, c := range resp.Categories.Items {
		if c != nil {
			e.followUp(model.NewTask(model.KindCategoryPlaylists, c.ID))
		}
	}
	e.nextPage(task, resp.Categories.Next)
	return nil
}

func parseCategoryPlaylists(e *extractor, task model.Task, body []byte) error {
	var resp struct {
		Playlists page[idObject] `json:"playlists"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	// The API returns null entries for playlists that are unavailable.
	for _, p := range resp.Playlists.Items {
		if p != nil {
			e.followUp(model.NewTask(model.KindPlaylistTracks, p.ID))
		}
	}
	e.nextPage(task, resp.Playlists.Next)
	return nil
}

func parsePlaylistTracks(e *extractor, task model.Task, body []byte) error {
	var resp page[struct {
		Track *trackObject `json:"track"`
	}]
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, item := range resp.Items {
		if item != nil {
			e.track(item.Track)
		}
	}
	e.nextPage(task, resp.Next)
	return nil
}

func parseAlbum(e *extractor, body []byte) error {
	var resp struct {
		Artists []artistObject    `json:"artists"`
		Tracks  page[trackObject] `json:"tracks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for i := range resp.Artists {
		e.artist(&resp.Artists[i])
	}
	for _, t := range resp.Tracks.Items {
		e.track(t)
	}
	return nil
}

func parseArtistAlbums(e *extractor, task model.Task, body []byte) error {
	var resp page[struct {
		ID      string         `json:"id"`
		Artists []artistObject `json:"artists"`
	}]
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, album := range resp.Items {
		if album == nil {
			continue
		}
		for i := range album.Artists {
			e.artist(&album.Artists[i])
		}
		e.followUp(model.NewTask(model.KindAlbum, album.ID))
	}
	e.nextPage(task, resp.Next)
	return nil
}

func parseArtists(e *extractor, body []byte) error {
	var resp struct {
		Artists []*artistObject `json:"artists"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	// Unknown ids in a batch lookup come back as null.
	for _, a := range resp.Artists {
		e.artist(a)
	}
	return nil
}

func parseRecommendations(e *extractor, body []byte) error {
	var resp struct {
		Tracks []*trackObject `json:"tracks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, t := range resp.Tracks {
		e.track(t)
	}
	return nil
}
