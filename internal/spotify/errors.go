package spotify

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingID is returned when a task for a parameterized endpoint has no id.
	ErrMissingID = errors.New("task has no id")
	// ErrBatchTooLarge is returned when a batch task exceeds the endpoint's batch limit.
	ErrBatchTooLarge = errors.New("batch exceeds endpoint limit")
	// ErrUnknownEndpoint is returned for tasks whose kind has no endpoint definition.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrBodyTooLarge is returned when a response body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body too large")
	// ErrToken is returned when an access token cannot be obtained.
	ErrToken = errors.New("failed to obtain access token")
	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
	// ErrProxyNotSOCKS5 is returned when the proxy responds but does not speak SOCKS5.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")
	// ErrProxyCannotConnect is returned when the proxy cannot be reached.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")
	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")
)

// StatusError describes a non-200 response.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the API's error message, if the body carried one.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}
