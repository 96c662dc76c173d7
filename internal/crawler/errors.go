package crawler

import (
	"errors"
	"fmt"

	"github.com/nao1215/artistscan/internal/model"
)

// Task outcome errors. These are recoverable: the task is logged and
// dropped, and the crawl continues.
var (
	// ErrRateLimited is returned when the API answered 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient is returned for failures that may succeed when repeated.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent is returned for failures that will not succeed when repeated.
	ErrPermanent = errors.New("permanent failure")
	// ErrExhaustedRetries is returned when a task hit the maximum number of attempts.
	ErrExhaustedRetries = errors.New("retries exhausted")
)

// Run errors. These stop the crawl.
var (
	// ErrSink is returned when the output sink rejects a record.
	ErrSink = errors.New("output sink failed")
	// ErrAlreadyRunning is returned when Run is called on a running Coordinator.
	ErrAlreadyRunning = errors.New("coordinator is already running")
)

// TaskError describes the failure of one task.
type TaskError struct {
	// Kind is the endpoint kind of the task.
	Kind model.EndpointKind
	// ID is the task id, or a batch description.
	ID string
	// Attempts is the number of requests made for the task.
	Attempts int
	// Err is the underlying error.
	Err error
}

// newTaskError creates a TaskError for task.
func newTaskError(task model.Task, attempts int, err error) *TaskError {
	id := task.ID
	if task.IsBatch() {
		id = task.String()
	}
	return &TaskError{Kind: task.Kind, ID: id, Attempts: attempts, Err: err}
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %q after %d attempt(s): %v", e.Kind, e.ID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}
