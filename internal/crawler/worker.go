package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/artistscan/internal/model"
	"github.com/nao1215/artistscan/internal/score"
	"github.com/nao1215/artistscan/internal/spotify"
)

// State is a worker's position in its state machine.
type State int32

const (
	// StateIdle is between tasks.
	StateIdle State = iota
	// StateDequeuing is waiting for a task.
	StateDequeuing
	// StateRequesting is executing a request.
	StateRequesting
	// StateRetrying is waiting out a backoff delay.
	StateRetrying
	// StateProcessing is handling a successful response.
	StateProcessing
	// StateTerminated is final.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDequeuing:
		return "dequeuing"
	case StateRequesting:
		return "requesting"
	case StateRetrying:
		return "retrying"
	case StateProcessing:
		return "processing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Worker pulls tasks from the Coordinator's queue and drives each one to
// completion.
type Worker struct {
	id     int
	c      *Coordinator
	state  atomic.Int32
	logger *slog.Logger

	// processed counts tasks taken from the queue.
	processed atomic.Int64
}

func newWorker(id int, c *Coordinator) *Worker {
	return &Worker{
		id:     id,
		c:      c,
		logger: c.logger.With("worker", id),
	}
}

// ID returns the worker index.
func (w *Worker) ID() int {
	return w.id
}

// State returns the current state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Processed returns how many tasks the worker took from the queue.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

func (w *Worker) setState(s State) {
	prev := State(w.state.Swap(int32(s)))
	if prev != s {
		w.logger.Debug("worker state", "from", prev.String(), "to", s.String())
	}
}

// Run loops until shutdown. It returns an error only for failures that end
// the whole run.
func (w *Worker) Run(ctx context.Context) error {
	defer w.setState(StateTerminated)

	for {
		w.setState(StateIdle)
		task, ok := w.dequeue(ctx)
		if !ok {
			return nil
		}
		w.processed.Add(1)

		err := w.handle(ctx, task)
		w.c.queue.Done()
		if err != nil {
			w.logger.Error("stopping crawl", "task", task.String(), "error", err)
			w.c.state.stop(StopError)
			return err
		}
	}
}

// dequeue returns the next task, waiting while the queue is only
// temporarily empty. ok is false once the run is shutting down.
func (w *Worker) dequeue(ctx context.Context) (model.Task, bool) {
	w.setState(StateDequeuing)
	for {
		if ctx.Err() != nil {
			w.c.state.stop(StopCanceled)
			return model.Task{}, false
		}
		if w.c.state.stopped() {
			return model.Task{}, false
		}

		// Taken before Pop so that a push between Pop and the wait is not missed.
		changed := w.c.queue.Changed()

		if task, _, ok := w.c.queue.Pop(); ok {
			return task, true
		}
		if w.c.checkDrained() {
			return model.Task{}, false
		}

		select {
		case <-changed:
		case <-w.c.state.done:
			return model.Task{}, false
		case <-ctx.Done():
			return model.Task{}, false
		}
	}
}

// handle requests task until it succeeds, fails permanently, or runs out of
// attempts.
func (w *Worker) handle(ctx context.Context, task model.Task) error {
	attempts := 0
	for {
		w.setState(StateRequesting)
		res := w.c.fetcher.Execute(ctx, task)
		attempts++
		w.c.stats.requests.Inc()
		incKind(w.c.stats.kindRequests, task.Kind)

		switch res.Status {
		case spotify.StatusSuccess:
			return w.process(ctx, task, res.Body)

		case spotify.StatusPermanent:
			w.c.stats.failed.Inc()
			w.logger.Warn("dropping task",
				"error", newTaskError(task, attempts, fmt.Errorf("%w: %w", ErrPermanent, res.Err)),
				"kind", task.Kind,
				"id", task.ID,
				"status", res.StatusCode,
			)
			return nil

		default:
			cause := ErrTransient
			if res.Status == spotify.StatusRateLimited {
				cause = ErrRateLimited
				w.c.stats.rateLimited.Inc()
			}

			if w.c.policy.Exhausted(attempts) {
				w.c.stats.abandoned.Inc()
				incKind(w.c.stats.kindAbandoned, task.Kind)
				w.logger.Warn("abandoning task",
					"error", newTaskError(task, attempts, fmt.Errorf("%w: %w: %w", ErrExhaustedRetries, cause, res.Err)),
					"kind", task.Kind,
					"id", task.ID,
					"attempts", attempts,
				)
				return nil
			}

			delay := w.c.policy.NextDelay(attempts-1, res.RetryAfter)
			w.logger.Debug("retrying task",
				"task", task.String(),
				"cause", cause,
				"attempt", attempts,
				"delay", delay,
				"retry_after", res.RetryAfter,
			)
			if !w.wait(ctx, delay) {
				w.logger.Debug("shutdown during backoff, task dropped", "task", task.String())
				return nil
			}
			w.c.stats.retries.Inc()
		}
	}
}

// wait sleeps for d in the Retrying state. It returns false if the run
// shuts down or ctx ends first.
func (w *Worker) wait(ctx context.Context, d time.Duration) bool {
	w.setState(StateRetrying)
	select {
	case <-w.c.after(d):
		return !w.c.state.stopped()
	case <-w.c.state.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// process handles a successful response: emit new complete records, hand
// new incomplete ids to the aggregator, and queue new follow-ups.
func (w *Worker) process(ctx context.Context, task model.Task, body []byte) error {
	w.setState(StateProcessing)

	ex, err := w.c.fetcher.Parse(task, body)
	if err != nil {
		w.c.stats.failed.Inc()
		w.logger.Warn("dropping task",
			"error", newTaskError(task, 1, fmt.Errorf("%w: %w", ErrPermanent, err)),
			"kind", task.Kind,
			"id", task.ID,
		)
		return nil
	}
	w.c.classifier.Record(task.Kind, score.Score(ex))

	// The response is already paid for; finish it even if the process is
	// being cancelled.
	ctx = context.WithoutCancel(ctx)

	for _, artist := range ex.Artists {
		if err := w.c.emit(ctx, artist); err != nil {
			return err
		}
	}

	for _, id := range ex.Incomplete {
		known, err := w.c.cache.Contains(ctx, model.ArtistKey(id))
		if err != nil {
			return cacheError(err)
		}
		if known {
			continue
		}
		seen, err := w.c.runCache.TestAndSet(ctx, model.RefKey(id))
		if err != nil {
			return cacheError(err)
		}
		if !seen {
			w.c.aggregator.AddIncomplete(id)
		}
	}

	for _, next := range ex.FollowUps {
		seen, err := w.c.runCache.TestAndSet(ctx, next.Key())
		if err != nil {
			return cacheError(err)
		}
		if !seen {
			w.c.push(next, w.c.classifier.Tier(next.Kind))
		}
	}

	for _, b := range w.c.aggregator.DrainReady() {
		w.c.push(b, model.TierPrimary)
	}
	return nil
}
