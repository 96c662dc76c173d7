package batch

import (
	"sync"

	"github.com/nao1215/artistscan/internal/model"
)

// DefaultThreshold is the largest number of ids the batch artist endpoint
// accepts in one call.
const DefaultThreshold = 50

// Aggregator buffers incomplete artist ids. It is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	threshold int
	kind      model.EndpointKind
	buf       []string
	buffered  map[string]struct{}
	emitted   int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithKind sets the endpoint kind of produced tasks. Defaults to model.KindArtists.
func WithKind(kind model.EndpointKind) Option {
	return func(a *Aggregator) {
		a.kind = kind
	}
}

// New creates an Aggregator that produces a batch every threshold ids.
// A threshold below 1 falls back to DefaultThreshold.
func New(threshold int, opts ...Option) *Aggregator {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	a := &Aggregator{
		threshold: threshold,
		kind:      model.KindArtists,
		buffered:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the batch size.
func (a *Aggregator) Threshold() int {
	return a.threshold
}

// AddIncomplete buffers id. Empty ids and ids already in the buffer are
// ignored. It reports whether the id was buffered.
func (a *Aggregator) AddIncomplete(id string) bool {
	if id == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.buffered[id]; ok {
		return false
	}
	a.buffered[id] = struct{}{}
	a.buf = append(a.buf, id)
	return true
}

// DrainReady removes and returns one task per full batch in the buffer.
// Ids left over stay buffered.
func (a *Aggregator) DrainReady() []model.Task {
	a.mu.Lock()
	defer a.mu.Unlock()

	var tasks []model.Task
	for len(a.buf) >= a.threshold {
		tasks = append(tasks, a.takeLocked(a.threshold))
	}
	return tasks
}

// Flush removes and returns every buffered id packed into tasks, including a
// final partial batch. It returns nil when the buffer is empty.
func (a *Aggregator) Flush() []model.Task {
	a.mu.Lock()
	defer a.mu.Unlock()

	var tasks []model.Task
	for len(a.buf) > 0 {
		tasks = append(tasks, a.takeLocked(min(a.threshold, len(a.buf))))
	}
	return tasks
}

// Pending returns the number of buffered ids.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

// Emitted returns the number of batch tasks produced so far.
func (a *Aggregator) Emitted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emitted
}

// takeLocked pops the first n ids as one task. a.mu must be held.
func (a *Aggregator) takeLocked(n int) model.Task {
	ids := a.buf[:n]
	task := model.NewBatchTask(a.kind, ids)
	for _, id := range ids {
		delete(a.buffered, id)
	}
	rest := make([]string, len(a.buf)-n)
	copy(rest, a.buf[n:])
	a.buf = rest
	a.emitted++
	return task
}
