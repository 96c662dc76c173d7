package crawler

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nao1215/artistscan/internal/model"
	"github.com/nao1215/artistscan/internal/queue"
	"github.com/nao1215/artistscan/internal/score"
)

// Stats summarizes one run.
type Stats struct {
	StartedAt  time.Time
	FinishedAt time.Time
	StopReason StopReason

	Workers int
	Target  int
	Fresh   bool

	// Emitted is the number of unique artists written to the sink.
	Emitted int64

	// Requests is the number of API requests made.
	Requests int64

	// Retries is the number of repeated requests.
	Retries int64

	// RateLimited is the number of 429 responses.
	RateLimited int64

	// Abandoned is the number of tasks dropped after exhausting retries.
	Abandoned int64

	// Failed is the number of tasks dropped after a permanent failure.
	Failed int64

	// Duplicates is the number of complete records skipped because they were
	// already emitted.
	Duplicates int64

	// Flushed is the number of partial batches produced on queue drain.
	Flushed int

	// KindRequests counts requests per endpoint kind.
	KindRequests map[model.EndpointKind]int64

	// KindAbandoned counts abandoned tasks per endpoint kind.
	KindAbandoned map[model.EndpointKind]int64

	// Scores holds the observed information density per kind.
	Scores []score.KindStats

	// Queue is the final queue snapshot.
	Queue queue.Stats
}

// Duration returns how long the run took.
func (s Stats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// counters are updated concurrently by all workers.
type counters struct {
	requests    *xsync.Counter
	retries     *xsync.Counter
	rateLimited *xsync.Counter
	abandoned   *xsync.Counter
	failed      *xsync.Counter
	duplicates  *xsync.Counter

	kindRequests  *xsync.MapOf[model.EndpointKind, *xsync.Counter]
	kindAbandoned *xsync.MapOf[model.EndpointKind, *xsync.Counter]
}

func newCounters() *counters {
	return &counters{
		requests:      xsync.NewCounter(),
		retries:       xsync.NewCounter(),
		rateLimited:   xsync.NewCounter(),
		abandoned:     xsync.NewCounter(),
		failed:        xsync.NewCounter(),
		duplicates:    xsync.NewCounter(),
		kindRequests:  xsync.NewMapOf[model.EndpointKind, *xsync.Counter](),
		kindAbandoned: xsync.NewMapOf[model.EndpointKind, *xsync.Counter](),
	}
}

func incKind(m *xsync.MapOf[model.EndpointKind, *xsync.Counter], kind model.EndpointKind) {
	c, _ := m.LoadOrCompute(kind, xsync.NewCounter)
	c.Inc()
}

func snapshotKinds(m *xsync.MapOf[model.EndpointKind, *xsync.Counter]) map[model.EndpointKind]int64 {
	out := make(map[model.EndpointKind]int64, m.Size())
	m.Range(func(kind model.EndpointKind, c *xsync.Counter) bool {
		out[kind] = c.Value()
		return true
	})
	return out
}

// KindRequestsByName returns KindRequests keyed by kind name.
func (s Stats) KindRequestsByName() map[string]int {
	out := make(map[string]int, len(s.KindRequests))
	for kind, n := range s.KindRequests {
		out[string(kind)] = int(n)
	}
	return out
}
