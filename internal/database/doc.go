// Package database provides SQLite-based storage for artistscan.
//
// This package implements the CrawlDB, which stores:
//   - The visited set used for deduplication across process restarts
//   - A history of crawl runs with their counters
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. INSERT OR IGNORE gives an atomic test-and-set without extra locking
// 4. WAL mode keeps reads cheap while workers insert
package database
