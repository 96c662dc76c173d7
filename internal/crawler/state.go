package crawler

import (
	"sync"
	"sync/atomic"
)

// StopReason tells why a run ended.
type StopReason string

const (
	// StopNone means the run has not stopped.
	StopNone StopReason = ""
	// StopDrained means no work was left.
	StopDrained StopReason = "drained"
	// StopTarget means the requested number of artists was emitted.
	StopTarget StopReason = "target_reached"
	// StopCanceled means the process context was cancelled.
	StopCanceled StopReason = "canceled"
	// StopError means a cache or sink failure ended the run.
	StopError StopReason = "error"
)

// runState is the global state of one run. All workers share it; only the
// Coordinator creates it.
type runState struct {
	// shutdown is set once. done is closed at the same moment so that
	// waiting workers wake up.
	shutdown atomic.Bool
	done     chan struct{}
	once     sync.Once

	mu     sync.Mutex
	reason StopReason

	// target is the number of artists to emit, 0 for unbounded.
	target int64

	// slotMu guards reserved. slotFreed is signaled whenever a slot is
	// released or committed.
	slotMu    sync.Mutex
	slotFreed *sync.Cond

	// reserved counts emissions in progress plus completed ones. It never
	// exceeds target, which is what bounds the output.
	reserved int64

	// emitted counts records accepted by the sink.
	emitted atomic.Int64
}

func newRunState(target int) *runState {
	s := &runState{
		done:   make(chan struct{}),
		target: int64(max(target, 0)),
	}
	s.slotFreed = sync.NewCond(&s.slotMu)
	return s
}

// stop signals shutdown. Only the first reason is kept.
func (s *runState) stop(reason StopReason) {
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		s.shutdown.Store(true)
		close(s.done)
	})
}

// stopped reports whether shutdown was signaled.
func (s *runState) stopped() bool {
	return s.shutdown.Load()
}

// stopReason returns why the run stopped, or StopNone.
func (s *runState) stopReason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// reserve claims one emission slot. While every remaining slot is held by
// an emission in progress it waits, because a held slot may still be
// released. It fails only once target records were emitted.
// A stopped run still accepts records from responses already received.
func (s *runState) reserve() bool {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()

	if s.target == 0 {
		s.reserved++
		return true
	}
	for {
		if s.emitted.Load() >= s.target {
			return false
		}
		if s.reserved < s.target {
			s.reserved++
			return true
		}
		s.slotFreed.Wait()
	}
}

// release returns a slot claimed by reserve that was not used.
func (s *runState) release() {
	s.slotMu.Lock()
	s.reserved--
	s.slotMu.Unlock()
	s.slotFreed.Broadcast()
}

// commit records a completed emission and stops the run when the target is met.
func (s *runState) commit() {
	s.slotMu.Lock()
	n := s.emitted.Add(1)
	s.slotMu.Unlock()
	s.slotFreed.Broadcast()

	if s.target > 0 && n >= s.target {
		s.stop(StopTarget)
	}
}
