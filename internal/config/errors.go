package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrMissingCredentials is returned when only one of the client ID and
	// client secret is set. Both or neither must be provided.
	ErrMissingCredentials = errors.New("incomplete credentials: set both client_id and client_secret")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxArtists is returned when the artist target is negative.
	// Use 0 for an unbounded crawl.
	ErrInvalidMaxArtists = errors.New("invalid max artists: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is negative.
	// Use 0 to derive the pool size from the target.
	ErrInvalidWorkers = errors.New("invalid workers: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch threshold is outside
	// 1..50, the largest id list the batch artist endpoint accepts.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be between 1 and 50")

	// ErrInvalidMaxAttempts is returned when the retry limit is not positive.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidBackoff is returned when the backoff base or cap is not
	// positive, or the cap is smaller than the base.
	ErrInvalidBackoff = errors.New("invalid backoff: base and cap must be positive and cap must not be below base")

	// ErrInvalidRate is returned when the request rate or burst is negative.
	ErrInvalidRate = errors.New("invalid rate limit: requests per second and burst must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownCacheBackend is returned for an unsupported --cache value.
	ErrUnknownCacheBackend = errors.New("unknown cache backend: use memory, sqlite or redis")

	// ErrNoOutput is returned when the output path is empty.
	ErrNoOutput = errors.New("no output file specified")

	// ErrInvalidTier is returned when a tier override names an unknown
	// endpoint kind or tier.
	ErrInvalidTier = errors.New("invalid tier override")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
