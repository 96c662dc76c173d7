package config

import (
	"time"

	"github.com/nao1215/artistscan/internal/dedup"
)

// File represents the structure of the .artistscan configuration file.
// Every field is optional; unset values keep the defaults from NewConfig.
type File struct {
	// Credentials holds the application credentials for the token endpoint.
	Credentials Credentials `yaml:"credentials,omitempty"`

	// API configures how requests are sent.
	API APIConfig `yaml:"api,omitempty"`

	// Crawl configures the crawl itself.
	Crawl CrawlConfig `yaml:"crawl,omitempty"`

	// Tiers maps endpoint kind names to "primary" or "secondary".
	Tiers map[string]string `yaml:"tiers,omitempty"`

	// Redis configures the redis cache backend.
	Redis dedup.RedisOptions `yaml:"redis,omitempty"`
}

// Credentials are the client credentials grant inputs.
type Credentials struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
}

// APIConfig holds transport settings.
type APIConfig struct {
	BaseURL  string `yaml:"base_url,omitempty"`
	TokenURL string `yaml:"token_url,omitempty"`

	// RequestsPerSecond is a pointer so that an explicit 0 (no pacing) can
	// be told apart from an absent key.
	RequestsPerSecond *float64 `yaml:"requests_per_second,omitempty"`
	Burst             int      `yaml:"burst,omitempty"`

	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Proxy     string        `yaml:"proxy,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty"`
}

// CrawlConfig holds crawl settings.
type CrawlConfig struct {
	MaxArtists  int           `yaml:"max_artists,omitempty"`
	Workers     int           `yaml:"workers,omitempty"`
	Output      string        `yaml:"output,omitempty"`
	Cache       string        `yaml:"cache,omitempty"`
	BatchSize   int           `yaml:"batch_size,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BackoffBase time.Duration `yaml:"backoff_base,omitempty"`
	BackoffCap  time.Duration `yaml:"backoff_cap,omitempty"`
	Adaptive    bool          `yaml:"adaptive,omitempty"`
}
