package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/nao1215/artistscan/internal/model"
)

const (
	// DefaultTimeout bounds one request including reading the body.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024
	// DefaultUserAgent identifies the crawler to the API.
	DefaultUserAgent = "artistscan/1.0 (+https://github.com/nao1215/artistscan)"
)

// Status classifies the outcome of one request.
type Status int

const (
	// StatusSuccess means the body holds a usable response.
	StatusSuccess Status = iota
	// StatusRateLimited means the API answered 429. RetryAfter may hold its hint.
	StatusRateLimited
	// StatusTransient means the request may succeed if repeated.
	StatusTransient
	// StatusPermanent means repeating the request will not help.
	StatusPermanent
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRateLimited:
		return "rate_limited"
	case StatusTransient:
		return "transient"
	case StatusPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Result is the classified outcome of one request.
type Result struct {
	// Status is the classification.
	Status Status

	// RetryAfter is the server-provided wait hint. Zero when absent.
	RetryAfter time.Duration

	// StatusCode is the HTTP status code, or 0 when no response was received.
	StatusCode int

	// Body is the response body on success.
	Body []byte

	// Err describes the failure when Status is not StatusSuccess.
	Err error
}

// Options configures a Client.
type Options struct {
	// ClientID and ClientSecret are the app credentials. When both are
	// empty requests are sent without an Authorization header.
	ClientID     string
	ClientSecret string

	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// TokenURL is the token endpoint. Defaults to DefaultTokenURL.
	TokenURL string

	// RequestsPerSecond paces outgoing requests across all workers.
	// Zero or negative disables pacing.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Defaults to 1.
	Burst int

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// ProxyAddress routes traffic through a SOCKS5 proxy when set.
	ProxyAddress string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// MaxBodySize overrides DefaultMaxBodySize.
	MaxBodySize int64

	// Transport overrides the HTTP transport. Used by tests.
	Transport http.RoundTripper

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client executes single API requests.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      *tokenCache
	limiter     *rate.Limiter
	maxBodySize int64
	logger      *slog.Logger

	requests atomic.Int64
}

// NewClient creates a Client.
//
// Design decision: We don't fetch a token in the constructor. The first
// request fetches it, which keeps construction free of network I/O and lets
// the crawl command build the client before it knows whether any request
// will be sent at all (e.g. a resumed run whose queue is already drained).
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base := opts.Transport
	if base == nil {
		transport, err := NewTransport(opts.ProxyAddress)
		if err != nil {
			return nil, err
		}
		base = transport
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			base: base,
			headers: map[string]string{
				"User-Agent": opts.UserAgent,
				"Accept":     "application/json",
			},
		},
		Timeout: opts.Timeout,
	}

	limiter := rate.NewLimiter(rate.Inf, opts.Burst)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}

	c := &Client{
		baseURL:     opts.BaseURL,
		httpClient:  httpClient,
		limiter:     limiter,
		maxBodySize: opts.MaxBodySize,
		logger:      opts.Logger,
	}
	if opts.ClientID != "" || opts.ClientSecret != "" {
		c.tokens = newTokenCache(opts.ClientID, opts.ClientSecret, opts.TokenURL, httpClient)
	}
	return c, nil
}

// Requests returns how many API requests were sent.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// TokenRefreshes returns how many access tokens were fetched.
func (c *Client) TokenRefreshes() int {
	if c.tokens == nil {
		return 0
	}
	return c.tokens.Refreshes()
}

// Parse decodes a successful response body for task.
func (c *Client) Parse(task model.Task, body []byte) (model.Extraction, error) {
	return Parse(task, body)
}

// Execute sends the request for task once and classifies the outcome.
func (c *Client) Execute(ctx context.Context, task model.Task) Result {
	endpoint, err := EndpointFor(task.Kind)
	if err != nil {
		return Result{Status: StatusPermanent, Err: err}
	}
	reqURL, err := endpoint.URL(c.baseURL, task)
	if err != nil {
		return Result{Status: StatusPermanent, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{Status: StatusTransient, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{Status: StatusPermanent, Err: err}
	}

	var tok *oauth2.Token
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return Result{Status: StatusTransient, Err: err}
		}
		t.SetAuthHeader(req)
		tok = t
	}

	c.requests.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are worth repeating.
		return Result{Status: StatusTransient, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api response",
		"task", task.String(),
		"status", resp.StatusCode,
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return Result{Status: StatusTransient, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > c.maxBodySize {
		return Result{
			Status:     StatusPermanent,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, c.maxBodySize),
		}
	}

	return c.classify(resp, body, tok)
}

// classify maps a response onto a Result.
func (c *Client) classify(resp *http.Response, body []byte, tok *oauth2.Token) Result {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return Result{Status: StatusSuccess, StatusCode: code, Body: body}
	case code == http.StatusTooManyRequests:
		return Result{
			Status:     StatusRateLimited,
			StatusCode: code,
			RetryAfter: parseRetryAfter(resp.Header, time.Now()),
			Err:        statusError(code, body),
		}
	case code == http.StatusUnauthorized && c.tokens != nil:
		// The token was rejected. Drop it so the retry fetches a new one.
		c.tokens.Invalidate(tok)
		return Result{Status: StatusTransient, StatusCode: code, Err: statusError(code, body)}
	case code == http.StatusRequestTimeout || code >= http.StatusInternalServerError:
		return Result{Status: StatusTransient, StatusCode: code, Err: statusError(code, body)}
	default:
		return Result{Status: StatusPermanent, StatusCode: code, Err: statusError(code, body)}
	}
}

// statusError builds a StatusError, extracting the API's error message when
// the body is a regular error object.
func statusError(code int, body []byte) error {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	se := &StatusError{StatusCode: code}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return se
	}

	// Regular API errors are objects, token endpoint errors are strings.
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &obj); err == nil {
		se.Message = obj.Message
		return se
	}
	var s string
	if err := json.Unmarshal(payload.Error, &s); err == nil {
		se.Message = s
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
