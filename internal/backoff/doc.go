// Package backoff computes how long a worker waits before retrying a request
// that was rate limited or failed transiently.
//
// The policy is capped exponential backoff with full jitter: the exponential
// delay for an attempt is min(cap, base*2^attempt), and a uniform random
// amount in [0, delay] is added on top. When the server supplies an explicit
// Retry-After hint that is shorter than the exponential delay, the hint wins,
// so we never wait longer than the server asked for.
package backoff
