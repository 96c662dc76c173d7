package crawler

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/artistscan/internal/model"
)

func TestRunStateStop(t *testing.T) {
	t.Parallel()

	s := newRunState(0)
	if s.stopped() || s.stopReason() != StopNone {
		t.Fatal("new state must be running")
	}

	s.stop(StopDrained)
	s.stop(StopCanceled)

	if !s.stopped() {
		t.Error("expected stopped")
	}
	if s.stopReason() != StopDrained {
		t.Errorf("first reason must win, got %s", s.stopReason())
	}
	select {
	case <-s.done:
	default:
		t.Error("done channel must be closed")
	}
}

// TestRunStateReserveConcurrent tests that concurrent emitters never exceed the target.
func TestRunStateReserveConcurrent(t *testing.T) {
	t.Parallel()

	const target = 10
	s := newRunState(target)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.reserve() {
				s.commit()
			}
		}()
	}
	wg.Wait()

	if got := s.emitted.Load(); got != target {
		t.Errorf("emitted %d, expected %d", got, target)
	}
	if s.stopReason() != StopTarget {
		t.Errorf("expected target stop, got %s", s.stopReason())
	}
}

func TestRunStateRelease(t *testing.T) {
	t.Parallel()

	s := newRunState(1)
	if !s.reserve() {
		t.Fatal("first reserve should succeed")
	}

	got := make(chan bool, 1)
	go func() {
		got <- s.reserve()
	}()

	select {
	case <-got:
		t.Fatal("reserve must wait while the only slot is pending")
	case <-time.After(50 * time.Millisecond):
	}

	s.release()
	select {
	case ok := <-got:
		if !ok {
			t.Error("released slot should be available again")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reserve did not wake up after release")
	}
}

func TestRunStateReserveFailsAfterCommit(t *testing.T) {
	t.Parallel()

	s := newRunState(1)
	if !s.reserve() {
		t.Fatal("first reserve should succeed")
	}

	got := make(chan bool, 1)
	go func() {
		got <- s.reserve()
	}()

	s.commit()
	select {
	case ok := <-got:
		if ok {
			t.Error("reserve must fail once the target was emitted")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reserve did not wake up after commit")
	}
	if s.stopReason() != StopTarget {
		t.Errorf("expected target stop, got %s", s.stopReason())
	}
}

func TestRunStateUnbounded(t *testing.T) {
	t.Parallel()

	s := newRunState(0)
	for range 1000 {
		if !s.reserve() {
			t.Fatal("unbounded run must always reserve")
		}
		s.commit()
	}
	if s.stopped() {
		t.Error("unbounded run must not stop on emission")
	}
}

func TestTaskError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := newTaskError(model.NewTask(model.KindAlbum, "al1"), 3, fmt.Errorf("%w: %w", ErrExhaustedRetries, cause))

	if !errors.Is(err, ErrExhaustedRetries) || !errors.Is(err, cause) {
		t.Errorf("TaskError should unwrap to its causes: %v", err)
	}

	var te *TaskError
	if !errors.As(error(err), &te) {
		t.Fatal("expected TaskError")
	}
	if te.Kind != model.KindAlbum || te.ID != "al1" || te.Attempts != 3 {
		t.Errorf("unexpected fields %+v", te)
	}

	batchErr := newTaskError(model.NewBatchTask(model.KindArtists, []string{"a", "b"}), 1, ErrPermanent)
	if batchErr.ID != "artists[2 ids]" {
		t.Errorf("batch id = %q", batchErr.ID)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	for s := StateIdle; s <= StateTerminated; s++ {
		if s.String() == "unknown" {
			t.Errorf("state %d has no name", s)
		}
	}
	if State(99).String() != "unknown" {
		t.Error("out of range state should be unknown")
	}
}
