package queue

import (
	"sync"

	"github.com/nao1215/artistscan/internal/model"
)

// Queue is a two-tier FIFO work queue. It is safe for concurrent use.
type Queue struct {
	mu sync.Mutex

	// lanes holds one FIFO per tier, indexed by model.Tier.
	lanes [2][]model.Task

	// inFlight counts tasks popped but not yet marked Done.
	inFlight int

	// changed is closed and replaced whenever the queue state changes.
	changed chan struct{}

	pushed [2]int
	popped [2]int
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{changed: make(chan struct{})}
}

// Push appends task to the lane for tier. Unknown tiers go to the secondary lane.
func (q *Queue) Push(tier model.Tier, task model.Task) {
	if tier != model.TierPrimary {
		tier = model.TierSecondary
	}

	q.mu.Lock()
	q.lanes[tier] = append(q.lanes[tier], task)
	q.pushed[tier]++
	q.broadcastLocked()
	q.mu.Unlock()
}

// Pop removes and returns the head of the primary lane, or of the secondary
// lane when primary is empty. A popped task counts as in flight until Done is
// called. ok is false when both lanes are empty.
func (q *Queue) Pop() (task model.Task, tier model.Tier, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range []model.Tier{model.TierPrimary, model.TierSecondary} {
		lane := q.lanes[t]
		if len(lane) == 0 {
			continue
		}
		task = lane[0]
		lane[0] = model.Task{}
		q.lanes[t] = lane[1:]
		if len(q.lanes[t]) == 0 {
			// Release the backing array once a lane drains.
			q.lanes[t] = nil
		}
		q.popped[t]++
		q.inFlight++
		return task, t, true
	}

	return model.Task{}, 0, false
}

// Done marks one popped task as finished.
func (q *Queue) Done() {
	q.mu.Lock()
	if q.inFlight > 0 {
		q.inFlight--
	}
	q.broadcastLocked()
	q.mu.Unlock()
}

// Len returns the number of queued tasks across both lanes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes[model.TierPrimary]) + len(q.lanes[model.TierSecondary])
}

// InFlight returns the number of popped tasks not yet marked Done.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Idle reports whether both lanes are empty and no task is in flight.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight == 0 && len(q.lanes[model.TierPrimary]) == 0 && len(q.lanes[model.TierSecondary]) == 0
}

// Changed returns a channel that is closed the next time a task is pushed or
// marked Done. Callers must fetch a fresh channel after each wake-up.
func (q *Queue) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}

// broadcastLocked wakes every waiter. q.mu must be held.
func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Stats is a snapshot of queue counters.
type Stats struct {
	PrimaryQueued   int
	SecondaryQueued int
	InFlight        int
	PrimaryPushed   int
	SecondaryPushed int
	PrimaryPopped   int
	SecondaryPopped int
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		PrimaryQueued:   len(q.lanes[model.TierPrimary]),
		SecondaryQueued: len(q.lanes[model.TierSecondary]),
		InFlight:        q.inFlight,
		PrimaryPushed:   q.pushed[model.TierPrimary],
		SecondaryPushed: q.pushed[model.TierSecondary],
		PrimaryPopped:   q.popped[model.TierPrimary],
		SecondaryPopped: q.popped[model.TierSecondary],
	}
}
