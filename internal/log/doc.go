// Package log provides secure logging built on the standard slog package.
//
// The SecureHandler wraps any slog.Handler and masks sensitive values
// before they are written:
//   - OAuth material (client secrets, access tokens, bearer values)
//   - HTTP headers (Authorization, Cookie, Proxy-Authorization)
//   - Passwords for the SOCKS5 proxy and the Redis cache
//
// Even in verbose mode, sensitive values are masked so that crawl logs can
// be shared without leaking application credentials.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, log.Options{Verbose: true})
//
//	logger.Debug("token refreshed",
//	    "access_token", tok.AccessToken, // logged as ***REDACTED***
//	    "expiry", tok.Expiry,
//	)
//
//	slog.SetDefault(logger)
package log
