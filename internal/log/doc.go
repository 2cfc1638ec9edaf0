// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, cookies, tokens)
//   - Masking of credential query parameters inside logged URLs
//   - Configurable log levels with verbose mode support
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs)
//   - API keys passed as URL query parameters (the WAVE API key travels in
//     the request URL, so URLs are scrubbed before logging)
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "url", "https://wave.webaim.org/api/request?key=abc123&url=…", // key is masked
//	)
package log
