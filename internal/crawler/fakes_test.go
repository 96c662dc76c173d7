package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/artistscan/internal/model"
	"github.com/nao1215/artistscan/internal/spotify"
)

// fakeFetcher serves scripted results per task key. Tasks without a script
// succeed with an empty extraction.
type fakeFetcher struct {
	mu          sync.Mutex
	results     map[string][]spotify.Result
	extractions map[string]model.Extraction
	calls       []string

	// block, when set, makes Execute wait for ctx before answering.
	block bool
	// started is closed on the first Execute call when block is set.
	started chan struct{}
	once    sync.Once
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results:     make(map[string][]spotify.Result),
		extractions: make(map[string]model.Extraction),
		started:     make(chan struct{}),
	}
}

// respond scripts the results returned for task, in order. The last one
// repeats.
func (f *fakeFetcher) respond(task model.Task, results ...spotify.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[task.Key()] = results
}

// extract sets what a successful response for task parses into.
func (f *fakeFetcher) extract(task model.Task, ex model.Extraction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions[task.Key()] = ex
}

func (f *fakeFetcher) Execute(ctx context.Context, task model.Task) spotify.Result {
	f.mu.Lock()
	key := task.Key()
	f.calls = append(f.calls, key)
	script := f.results[key]
	res := spotify.Result{Status: spotify.StatusSuccess, StatusCode: 200}
	if len(script) > 0 {
		res = script[0]
		if len(script) > 1 {
			f.results[key] = script[1:]
		}
	}
	block := f.block
	f.mu.Unlock()

	if block {
		f.once.Do(func() { close(f.started) })
		<-ctx.Done()
		return spotify.Result{Status: spotify.StatusTransient, Err: ctx.Err()}
	}
	return res
}

func (f *fakeFetcher) Parse(task model.Task, _ []byte) (model.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ex, ok := f.extractions[task.Key()]; ok {
		return ex, nil
	}
	return model.Extraction{}, nil
}

// callsFor returns how often task was executed.
func (f *fakeFetcher) callsFor(task model.Task) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.calls {
		if k == task.Key() {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// memorySink collects emitted artists.
type memorySink struct {
	mu      sync.Mutex
	artists []model.Artist
	err     error
}

func (s *memorySink) Emit(a model.Artist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.artists = append(s.artists, a)
	return nil
}

func (s *memorySink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.artists))
	for _, a := range s.artists {
		ids = append(ids, a.ID)
	}
	return ids
}

// recordingAfter fires immediately and records the requested delays.
type recordingAfter struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingAfter) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (r *recordingAfter) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// failingCache fails every operation.
type failingCache struct{}

var errBroken = errors.New("broken")

func (failingCache) TestAndSet(context.Context, string) (bool, error) { return false, errBroken }
func (failingCache) Contains(context.Context, string) (bool, error) { return false, errBroken }
func (failingCache) Clear(context.Context) error { return errBroken }
func (failingCache) Len(context.Context) (int, error) { return 0, errBroken }
func (failingCache) Close() error { return nil }

func artists(ids ...string) []model.Artist {
	out := make([]model.Artist, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.NewArtist(id, fmt.Sprintf("Artist %s", id), i, []string{"pop"}))
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
