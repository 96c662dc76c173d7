// Package dedup provides the shared visited-set used by crawl workers to
// decide whether a resource has already been seen.
//
// Every backend implements Cache, whose central operation is TestAndSet:
// it atomically checks whether an identifier has been seen and marks it if
// not. No two concurrent callers can both observe a first sighting of the
// same identifier.
//
// # Backends
//
//   - memory: a concurrent map held in process. Lost on exit.
//   - sqlite: the CrawlDB visited table in the XDG data directory (default).
//     Survives restarts so an interrupted crawl can resume.
//   - redis: a Redis set, for sharing the visited state with other tooling.
//
// Design decision: Callers only get atomic operations (TestAndSet, Contains,
// Clear). There is no iteration API, because a snapshot taken while workers
// are running would be stale the moment it is returned.
package dedup
