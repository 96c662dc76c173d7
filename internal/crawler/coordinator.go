package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/artistscan/internal/backoff"
	"github.com/nao1215/artistscan/internal/batch"
	"github.com/nao1215/artistscan/internal/dedup"
	"github.com/nao1215/artistscan/internal/model"
	"github.com/nao1215/artistscan/internal/queue"
	"github.com/nao1215/artistscan/internal/score"
	"github.com/nao1215/artistscan/internal/spotify"
)

// DefaultUnboundedWorkers is the pool size when no target is set.
const DefaultUnboundedWorkers = 4

// Fetcher executes and parses single API requests.
type Fetcher interface {
	// Execute sends the request for task once.
	Execute(ctx context.Context, task model.Task) spotify.Result
	// Parse decodes a successful response body.
	Parse(task model.Task, body []byte) (model.Extraction, error)
}

// Sink receives each unique complete artist record exactly once.
type Sink interface {
	Emit(artist model.Artist) error
}

// DefaultWorkers returns the pool size for a target: one worker per 50
// artists, at least 2 and at most 16. An unbounded run uses
// DefaultUnboundedWorkers.
func DefaultWorkers(target int) int {
	if target <= 0 {
		return DefaultUnboundedWorkers
	}
	return min(16, max(2, target/50))
}

// Coordinator owns one crawl run.
//
// Design decision: The Coordinator holds every shared structure (queue,
// caches, aggregator, run state) and workers reach them only through it.
// This keeps the global state of a run in one place, and a Worker is then
// nothing more than the state machine that drives a single task at a time.
type Coordinator struct {
	fetcher    Fetcher
	cache      dedup.Cache
	sink       Sink
	policy     *backoff.Policy
	classifier *score.Classifier
	aggregator *batch.Aggregator
	queue      *queue.Queue

	// runCache tracks endpoint keys and batched ids for this run only.
	runCache dedup.Cache

	workers int
	target  int
	fresh   bool
	roots   []model.Task
	logger  *slog.Logger

	// after returns a channel that fires after d. Replaced in tests.
	after func(d time.Duration) <-chan time.Time

	running atomic.Bool
	state   *runState
	stats   *counters
	pool    []*Worker

	// drainMu serializes drain handling so that only one worker flushes
	// the aggregator or declares the run finished.
	drainMu sync.Mutex
	flushed int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers sets the pool size. Values below 1 use DefaultWorkers.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithTarget stops the run after n unique artists. 0 means unbounded.
func WithTarget(n int) Option {
	return func(c *Coordinator) {
		c.target = max(n, 0)
	}
}

// WithFresh clears the persistent cache before seeding.
func WithFresh(fresh bool) Option {
	return func(c *Coordinator) {
		c.fresh = fresh
	}
}

// WithRoots replaces the root tasks. Defaults to spotify.Roots().
func WithRoots(roots ...model.Task) Option {
	return func(c *Coordinator) {
		c.roots = roots
	}
}

// WithPolicy sets the backoff policy. Defaults to backoff.New().
func WithPolicy(p *backoff.Policy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithClassifier sets the tier classifier. Defaults to the static table.
func WithClassifier(cl *score.Classifier) Option {
	return func(c *Coordinator) {
		c.classifier = cl
	}
}

// WithAggregator sets the batch aggregator. Defaults to batch.New(batch.DefaultThreshold).
func WithAggregator(a *batch.Aggregator) Option {
	return func(c *Coordinator) {
		c.aggregator = a
	}
}

// WithRunCache sets the per-run cache for endpoint keys. Defaults to an
// in-memory cache.
func WithRunCache(cache dedup.Cache) Option {
	return func(c *Coordinator) {
		c.runCache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// withAfter replaces time.After for backoff waits.
func withAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Coordinator) {
		c.after = after
	}
}

// NewCoordinator creates a Coordinator. cache is the persistent store of
// emitted artists and sink receives the output.
func NewCoordinator(fetcher Fetcher, cache dedup.Cache, sink Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		cache:   cache,
		sink:    sink,
		roots:   spotify.Roots(),
		logger:  slog.Default(),
		after:   time.After,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.workers < 1 {
		c.workers = DefaultWorkers(c.target)
	}
	if c.policy == nil {
		c.policy = backoff.New()
	}
	if c.classifier == nil {
		c.classifier = score.NewClassifier(nil)
	}
	if c.aggregator == nil {
		c.aggregator = batch.New(batch.DefaultThreshold)
	}
	if c.runCache == nil {
		c.runCache = dedup.NewMemoryCache()
	}
	c.queue = queue.New()
	c.state = newRunState(c.target)
	c.stats = newCounters()
	return c
}

// Workers returns the worker pool of the current or last run.
func (c *Coordinator) Workers() []*Worker {
	return c.pool
}

// Run crawls until the target is met, the queue drains, or ctx is
// cancelled. A Coordinator runs once.
func (c *Coordinator) Run(ctx context.Context) (Stats, error) {
	if c.running.Swap(true) {
		return Stats{}, ErrAlreadyRunning
	}

	started := time.Now()
	c.logger.Info("starting crawl",
		"workers", c.workers,
		"target", c.target,
		"fresh", c.fresh,
	)

	if err := c.seed(ctx); err != nil {
		c.state.stop(StopError)
		return c.snapshot(started), err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Process-level cancellation ends the run at the workers' next
	// dequeue or backoff point.
	go func() {
		select {
		case <-gctx.Done():
			c.state.stop(StopCanceled)
		case <-c.state.done:
		}
	}()

	c.pool = make([]*Worker, c.workers)
	for i := range c.workers {
		w := newWorker(i, c)
		c.pool[i] = w
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err := g.Wait()
	// No-op unless every worker failed before shutdown was signaled.
	c.state.stop(StopError)

	stats := c.snapshot(started)
	c.logger.Info("crawl finished",
		"reason", stats.StopReason,
		"emitted", stats.Emitted,
		"requests", stats.Requests,
		"retries", stats.Retries,
		"abandoned", stats.Abandoned,
		"duration", stats.Duration().Round(time.Millisecond),
	)

	if err != nil {
		return stats, err
	}
	if stats.StopReason == StopCanceled {
		return stats, ctx.Err()
	}
	return stats, nil
}

// seed clears the persistent cache in fresh mode and queues the roots.
func (c *Coordinator) seed(ctx context.Context) error {
	if c.fresh {
		if err := c.cache.Clear(ctx); err != nil {
			return cacheError(err)
		}
	}

	for _, root := range c.roots {
		seen, err := c.runCache.TestAndSet(ctx, root.Key())
		if err != nil {
			return cacheError(err)
		}
		if seen {
			continue
		}
		c.push(root, c.classifier.Tier(root.Kind))
	}

	c.logger.Debug("seeded work queue", "tasks", c.queue.Len())
	return nil
}

// push queues task on tier.
func (c *Coordinator) push(task model.Task, tier model.Tier) {
	c.queue.Push(tier, task)
	c.logger.Debug("task queued", "task", task.String(), "tier", tier.String())
}

// checkDrained is called by a worker that found the queue empty. It reports
// whether the run is over. When the queue is idle but the aggregator still
// holds ids, the partial batch is queued instead and the run continues.
func (c *Coordinator) checkDrained() bool {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	if c.state.stopped() {
		return true
	}
	if !c.queue.Idle() {
		return false
	}

	if tasks := c.aggregator.Flush(); len(tasks) > 0 {
		for _, task := range tasks {
			c.push(task, model.TierPrimary)
		}
		c.flushed += len(tasks)
		c.logger.Debug("queue drained, flushed partial batch", "batches", len(tasks))
		return false
	}

	c.state.stop(StopDrained)
	return true
}

// emit writes artist to the sink if it is new and the target allows it.
//
// Known artists are skipped before a slot is taken so that duplicates do not
// make new artists wait on the target.
func (c *Coordinator) emit(ctx context.Context, artist model.Artist) error {
	known, err := c.cache.Contains(ctx, artist.Key())
	if err != nil {
		return cacheError(err)
	}
	if known {
		c.stats.duplicates.Inc()
		return nil
	}

	if !c.state.reserve() {
		return nil
	}

	seen, err := c.cache.TestAndSet(ctx, artist.Key())
	if err != nil {
		c.state.release()
		return cacheError(err)
	}
	if seen {
		c.state.release()
		c.stats.duplicates.Inc()
		return nil
	}

	// A sink failure leaves the artist marked. The run stops with
	// StopError and delivery of that record is not retried.
	if err := c.sink.Emit(artist); err != nil {
		c.state.release()
		return fmt.Errorf("%w: %w", ErrSink, err)
	}
	c.state.commit()
	c.logger.Debug("artist emitted", "id", artist.ID, "name", artist.Name)
	return nil
}

// snapshot builds Stats from the current counters.
func (c *Coordinator) snapshot(started time.Time) Stats {
	c.drainMu.Lock()
	flushed := c.flushed
	c.drainMu.Unlock()

	return Stats{
		StartedAt:     started,
		FinishedAt:    time.Now(),
		StopReason:    c.state.stopReason(),
		Workers:       c.workers,
		Target:        c.target,
		Fresh:         c.fresh,
		Emitted:       c.state.emitted.Load(),
		Requests:      c.stats.requests.Value(),
		Retries:       c.stats.retries.Value(),
		RateLimited:   c.stats.rateLimited.Value(),
		Abandoned:     c.stats.abandoned.Value(),
		Failed:        c.stats.failed.Value(),
		Duplicates:    c.stats.duplicates.Value(),
		Flushed:       flushed,
		KindRequests:  snapshotKinds(c.stats.kindRequests),
		KindAbandoned: snapshotKinds(c.stats.kindAbandoned),
		Scores:        c.classifier.Snapshot(),
		Queue:         c.queue.Stats(),
	}
}

// cacheError marks err as a cache failure, which ends the run.
func cacheError(err error) error {
	if errors.Is(err, dedup.ErrCacheUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", dedup.ErrCacheUnavailable, err)
}
