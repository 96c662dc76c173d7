// Package queue implements the crawl work queue: two FIFO lanes where the
// primary lane is always drained before the secondary lane.
//
// The queue also counts tasks that have been popped but not yet marked Done.
// A queue that is empty while tasks are still in flight is only temporarily
// empty, because an in-flight task may push follow-up work. Idle reports the
// stronger condition (empty and nothing in flight) in a single atomic check,
// which is what the crawl coordinator uses to decide that the crawl is over.
package queue
