// Package crawler is the crawl engine: a Coordinator that owns the run and a
// fixed pool of Workers that pull tasks from the two-tier work queue.
//
// # Architecture
//
// The Coordinator seeds the queue with the root endpoints and starts the
// workers. Each Worker loops through an explicit state machine:
//
//	Idle -> Dequeuing -> Requesting -> Processing -> Idle
//	                         |  ^
//	                         v  |
//	                       Retrying
//
// and ends in Terminated once the Coordinator signals shutdown. Shutdown
// happens when the configured number of unique artists has been emitted, or
// when the queue is drained (empty, nothing in flight, no buffered batch ids),
// or when the process context is cancelled.
//
// # Deduplication
//
// Two caches are used. The persistent cache holds the keys of artists that
// were written to the output sink, so a resumed run never emits an artist
// twice. The run cache holds endpoint keys and the ids handed to the batch
// aggregator, so one run never requests the same resource twice.
//
// # Failure handling
//
// Rate-limited and transient responses are retried by the worker with the
// backoff policy, honoring the server's Retry-After hint. A task that keeps
// failing is abandoned after the policy's maximum attempts. Permanent
// failures are dropped immediately. No task failure stops the run. Only a
// failing cache or output sink does.
package crawler
