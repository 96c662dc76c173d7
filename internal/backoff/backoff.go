package backoff

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// DefaultBase is the delay unit for the first retry.
	DefaultBase = 1 * time.Second

	// DefaultCap bounds the exponential delay. 30 minutes matches the longest
	// penalty window observed from the API under sustained throttling.
	DefaultCap = 30 * time.Minute

	// DefaultMaxAttempts is the number of failed requests, the first one
	// included, after which a task is abandoned. It allows 7 retries.
	DefaultMaxAttempts = 8
)

// Policy computes retry delays. It is safe for concurrent use.
type Policy struct {
	base        time.Duration
	cap         time.Duration
	maxAttempts int

	mu   sync.Mutex
	rand func() float64
}

// Option configures a Policy.
type Option func(*Policy)

// WithBase sets the base delay.
func WithBase(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.base = d
		}
	}
}

// WithCap sets the maximum exponential delay.
func WithCap(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.cap = d
		}
	}
}

// WithMaxAttempts sets how many failed requests a task may make.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithRand replaces the jitter source. The function must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(p *Policy) {
		if fn != nil {
			p.rand = fn
		}
	}
}

// New creates a Policy with defaults overridden by opts.
func New(opts ...Option) *Policy {
	p := &Policy{
		base:        DefaultBase,
		cap:         DefaultCap,
		maxAttempts: DefaultMaxAttempts,
		rand:        rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.base > p.cap {
		p.base = p.cap
	}
	return p
}

// Exponential returns min(cap, base*2^attempt) without jitter.
func (p *Policy) Exponential(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.base
	for range attempt {
		if d >= p.cap/2 {
			return p.cap
		}
		d *= 2
	}
	if d > p.cap {
		return p.cap
	}
	return d
}

// NextDelay returns how long to wait before the retry that follows attempt.
// hint is the server supplied Retry-After duration, or zero when absent.
// A positive hint not longer than the exponential delay before jitter is
// returned as is. Otherwise the result is that delay plus jitter, never
// more than 2*cap.
func (p *Policy) NextDelay(attempt int, hint time.Duration) time.Duration {
	d := p.Exponential(attempt)
	if hint > 0 && hint <= d {
		return hint
	}

	p.mu.Lock()
	f := p.rand()
	p.mu.Unlock()

	return d + time.Duration(f*float64(d))
}

// MaxAttempts returns how many failed requests a task may make.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Exhausted reports whether a task whose last attempts requests all failed
// must be abandoned.
func (p *Policy) Exhausted(attempts int) bool {
	return attempts >= p.maxAttempts
}

// Cap returns the exponential delay cap.
func (p *Policy) Cap() time.Duration {
	return p.cap
}
