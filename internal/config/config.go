package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/artistscan/internal/backoff"
	"github.com/nao1215/artistscan/internal/batch"
	"github.com/nao1215/artistscan/internal/dedup"
	"github.com/nao1215/artistscan/internal/score"
	"github.com/nao1215/artistscan/internal/spotify"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "artistscan"

	// DefaultOutput is the artist CSV written when --output is not given.
	DefaultOutput = "artists.csv"

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond paces requests below the API's rolling
	// window limit so that most runs never see a 429.
	DefaultRequestsPerSecond = 5.0

	// DefaultBurst is the number of requests allowed back to back.
	DefaultBurst = 5

	// DefaultCacheBackend keeps visited artists in the local SQLite
	// database so that runs can be resumed.
	DefaultCacheBackend = dedup.BackendSQLite

	// DefaultUserAgent identifies artistscan in HTTP requests.
	DefaultUserAgent = "artistscan/1.0 (+https://github.com/nao1215/artistscan)"

	// DefaultMaxBodySize limits the response body size read per request.
	// The largest pages (100 playlist items with full track objects) stay
	// well below 5MB.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// EnvClientID and EnvClientSecret name the environment variables that
	// hold API credentials. They take precedence over the config file.
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
)

// Config holds all configuration options for a crawl.
// This struct is populated from defaults, the config file, environment
// variables and CLI flags, in that order, and passed through the
// application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is manageable and every component reads only the
// few fields it needs.
type Config struct {
	// ClientID and ClientSecret are the application credentials used for
	// the client credentials grant. When both are empty requests are sent
	// without a token, which only works against a local API double.
	ClientID     string
	ClientSecret string

	// BaseURL and TokenURL point at the API. Overridable for testing.
	BaseURL  string
	TokenURL string

	// MaxArtists stops the crawl once this many unique artists have been
	// written. 0 means crawl until no work is left.
	MaxArtists int

	// Fresh discards the visited set and truncates the output before the run.
	Fresh bool

	// Workers is the worker pool size. 0 derives it from MaxArtists.
	Workers int

	// Output is the artist CSV path.
	Output string

	// SummaryFile, when set, receives a Markdown run summary.
	SummaryFile string

	// JSONSummary prints the run summary as JSON instead of text.
	JSONSummary bool

	// CacheBackend selects where visited artists are remembered.
	CacheBackend string

	// Redis configures the redis cache backend.
	Redis dedup.RedisOptions

	// BatchSize is the number of referenced artist ids collected before a
	// batch lookup is queued.
	BatchSize int

	// MaxAttempts is the number of failed requests after which a task is
	// abandoned.
	MaxAttempts int

	// BackoffBase and BackoffCap shape the exponential retry delay.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// RequestsPerSecond and Burst pace outgoing requests. A rate of 0
	// disables pacing.
	RequestsPerSecond float64
	Burst             int

	// Adaptive lets observed response scores move endpoint kinds between
	// tiers during the run.
	Adaptive bool

	// TierOverrides maps endpoint kind names to "primary" or "secondary".
	TierOverrides map[string]string

	// Timeout bounds a single API request.
	Timeout time.Duration

	// ProxyAddress routes API traffic through a SOCKS5 proxy when set.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with API requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Verbose enables debug logging. LogJSON switches to JSON log lines.
	Verbose bool
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// DBDir is the directory of the SQLite database holding the visited
	// set and run history.
	DBDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BaseURL:           spotify.DefaultBaseURL,
		TokenURL:          spotify.DefaultTokenURL,
		Output:            DefaultOutput,
		CacheBackend:      DefaultCacheBackend,
		BatchSize:         batch.DefaultThreshold,
		MaxAttempts:       backoff.DefaultMaxAttempts,
		BackoffBase:       backoff.DefaultBase,
		BackoffCap:        backoff.DefaultCap,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		DBDir:             XDGDataDir(),
		Redis: dedup.RedisOptions{
			Addr: dedup.DefaultRedisAddr,
			Key:  dedup.DefaultRedisKey,
		},
	}
}

// XDGDataDir returns the XDG data directory for artistscan.
// On Linux: ~/.local/share/artistscan
// On macOS: ~/Library/Application Support/artistscan
// On Windows: %LOCALAPPDATA%\artistscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for artistscan.
// On Linux: ~/.config/artistscan
// On macOS: ~/Library/Application Support/artistscan
// On Windows: %APPDATA%\artistscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies every value set in the file over the current config.
// Zero values in the file leave the config untouched.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	if f.Credentials.ClientID != "" {
		c.ClientID = f.Credentials.ClientID
	}
	if f.Credentials.ClientSecret != "" {
		c.ClientSecret = f.Credentials.ClientSecret
	}

	api := f.API
	if api.BaseURL != "" {
		c.BaseURL = api.BaseURL
	}
	if api.TokenURL != "" {
		c.TokenURL = api.TokenURL
	}
	if api.RequestsPerSecond != nil {
		c.RequestsPerSecond = *api.RequestsPerSecond
	}
	if api.Burst != 0 {
		c.Burst = api.Burst
	}
	if api.Timeout != 0 {
		c.Timeout = api.Timeout
	}
	if api.Proxy != "" {
		c.ProxyAddress = api.Proxy
	}
	if api.UserAgent != "" {
		c.UserAgent = api.UserAgent
	}

	crawl := f.Crawl
	if crawl.MaxArtists != 0 {
		c.MaxArtists = crawl.MaxArtists
	}
	if crawl.Workers != 0 {
		c.Workers = crawl.Workers
	}
	if crawl.Output != "" {
		c.Output = crawl.Output
	}
	if crawl.Cache != "" {
		c.CacheBackend = crawl.Cache
	}
	if crawl.BatchSize != 0 {
		c.BatchSize = crawl.BatchSize
	}
	if crawl.MaxAttempts != 0 {
		c.MaxAttempts = crawl.MaxAttempts
	}
	if crawl.BackoffBase != 0 {
		c.BackoffBase = crawl.BackoffBase
	}
	if crawl.BackoffCap != 0 {
		c.BackoffCap = crawl.BackoffCap
	}
	if crawl.Adaptive {
		c.Adaptive = true
	}

	if len(f.Tiers) > 0 {
		if c.TierOverrides == nil {
			c.TierOverrides = make(map[string]string, len(f.Tiers))
		}
		for kind, tier := range f.Tiers {
			c.TierOverrides[kind] = tier
		}
	}

	if f.Redis.Addr != "" {
		c.Redis.Addr = f.Redis.Addr
	}
	if f.Redis.Password != "" {
		c.Redis.Password = f.Redis.Password
	}
	if f.Redis.DB != 0 {
		c.Redis.DB = f.Redis.DB
	}
	if f.Redis.Key != "" {
		c.Redis.Key = f.Redis.Key
	}
}

// ApplyEnv reads credentials from the environment. lookup is usually
// os.LookupEnv; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvClientID); ok && v != "" {
		c.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok && v != "" {
		c.ClientSecret = v
	}
}

// TierTable returns the default tier table with the configured overrides
// applied.
func (c *Config) TierTable() (score.Table, error) {
	return c.tierTable(score.DefaultTable())
}

// tierTable applies the overrides to base and validates the whole result.
func (c *Config) tierTable(base score.Table) (score.Table, error) {
	table, err := base.WithOverrides(c.TierOverrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTier, err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTier, err)
	}
	return table, nil
}

// Anonymous reports whether no credentials are configured.
func (c *Config) Anonymous() bool {
	return c.ClientID == "" && c.ClientSecret == ""
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return ErrMissingCredentials
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxArtists < 0 {
		return ErrInvalidMaxArtists
	}

	if c.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.BatchSize < 1 || c.BatchSize > spotify.MaxBatchIDs {
		return ErrInvalidBatchSize
	}

	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.BackoffBase <= 0 || c.BackoffCap <= 0 || c.BackoffCap < c.BackoffBase {
		return ErrInvalidBackoff
	}

	if c.RequestsPerSecond < 0 || c.Burst < 0 {
		return ErrInvalidRate
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if !slices.Contains(dedup.Backends(), c.CacheBackend) {
		return ErrUnknownCacheBackend
	}

	if c.Output == "" {
		return ErrNoOutput
	}

	if _, err := c.TierTable(); err != nil {
		return err
	}

	return nil
}
