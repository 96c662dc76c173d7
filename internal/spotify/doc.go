// Package spotify is the HTTP client wrapper for the Spotify Web API.
//
// A Client executes exactly one request per call and reports a classified
// Result. It never retries and never sleeps for rate limits itself: the
// crawl workers own the retry loop so that a single backoff policy governs
// every endpoint. The client does handle the parts of talking to the API
// that are pure plumbing:
//   - OAuth2 client-credentials tokens, refreshed when they expire or when
//     the API answers 401
//   - client-side request pacing with a token-bucket limiter
//   - an optional SOCKS5 proxy for all API and token traffic
//   - response size limits and the User-Agent header
//
// Parse turns a response body into complete artist records, artist ids that
// still need a batch lookup, and follow-up tasks (including the next page of
// a paginated listing).
package spotify
