package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file name inside the data directory.
const FileName = "artistscan.db"

// CrawlDB provides SQLite-based storage for the visited set and run history.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers, which is what makes
	// INSERT OR IGNORE a race-free test-and-set across workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Ping verifies the database is reachable.
func (cdb *CrawlDB) Ping(ctx context.Context) error {
	return cdb.db.PingContext(ctx)
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Visited resource identifiers
	CREATE TABLE IF NOT EXISTS visited (
		key TEXT PRIMARY KEY,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Crawl runs with summary counters
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		fresh INTEGER NOT NULL DEFAULT 0,
		target INTEGER NOT NULL DEFAULT 0,
		workers INTEGER NOT NULL DEFAULT 0,
		emitted INTEGER NOT NULL DEFAULT 0,
		requests INTEGER NOT NULL DEFAULT 0,
		retries INTEGER NOT NULL DEFAULT 0,
		abandoned INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT,
		kind_requests TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// MarkVisited inserts key into the visited set. It reports true when the key
// was newly inserted and false when it was already present.
func (cdb *CrawlDB) MarkVisited(ctx context.Context, key string) (bool, error) {
	result, err := cdb.db.ExecContext(ctx, `INSERT OR IGNORE INTO visited (key) VALUES (?)`, key)
	if err != nil {
		return false, fmt.Errorf("failed to mark visited: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n == 1, nil
}

// IsVisited reports whether key is in the visited set.
func (cdb *CrawlDB) IsVisited(ctx context.Context, key string) (bool, error) {
	var one int
	err := cdb.db.QueryRowContext(ctx, `SELECT 1 FROM visited WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check visited: %w", err)
	}
	return true, nil
}

// ClearVisited removes every key from the visited set.
func (cdb *CrawlDB) ClearVisited(ctx context.Context) error {
	if _, err := cdb.db.ExecContext(ctx, `DELETE FROM visited`); err != nil {
		return fmt.Errorf("failed to clear visited: %w", err)
	}
	return nil
}

// CountVisited returns the size of the visited set.
func (cdb *CrawlDB) CountVisited(ctx context.Context) (int, error) {
	var count int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visited`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count visited: %w", err)
	}
	return count, nil
}

// RunRecord is a stored summary of one crawl run.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Fresh        bool
	Target       int
	Workers      int
	Emitted      int
	Requests     int
	Retries      int
	Abandoned    int
	StopReason   string
	KindRequests map[string]int
}

// Duration returns how long the run took.
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun stores a run summary.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *RunRecord) error {
	kindJSON, err := json.Marshal(run.KindRequests)
	if err != nil {
		return fmt.Errorf("failed to serialize kind requests: %w", err)
	}

	query := `
	INSERT INTO crawl_runs (id, started_at, finished_at, fresh, target, workers, emitted, requests, retries, abandoned, stop_reason, kind_requests)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = cdb.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(run.Fresh),
		run.Target,
		run.Workers,
		run.Emitted,
		run.Requests,
		run.Retries,
		run.Abandoned,
		run.StopReason,
		string(kindJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, fresh, target, workers, emitted, requests, retries, abandoned, stop_reason, kind_requests
	FROM crawl_runs
	ORDER BY started_at DESC
	`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *run)
	}

	return results, rows.Err()
}

// GetRun retrieves a run by ID. It returns nil without error when no run matches.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, fresh, target, workers, emitted, requests, retries, abandoned, stop_reason, kind_requests
	FROM crawl_runs
	WHERE id = ?
	`

	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*RunRecord, error) {
	var (
		run        RunRecord
		startedAt  string
		finishedAt string
		fresh      int
		stopReason sql.NullString
		kindJSON   sql.NullString
	)

	err := s.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&fresh,
		&run.Target,
		&run.Workers,
		&run.Emitted,
		&run.Requests,
		&run.Retries,
		&run.Abandoned,
		&stopReason,
		&kindJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Fresh = fresh != 0
	run.StopReason = stopReason.String
	run.KindRequests = make(map[string]int)
	if kindJSON.Valid && kindJSON.String != "" {
		if err := json.Unmarshal([]byte(kindJSON.String), &run.KindRequests); err != nil || run.KindRequests == nil {
			run.KindRequests = make(map[string]int)
		}
	}

	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
