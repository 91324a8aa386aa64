// Package log provides the slog setup of peoplenet.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// reach it:
//   - Credential-like attributes (Authorization, Cookie, API keys and custom
//     headers configured for a private wiki) are masked.
//   - Long string values, such as raw infobox text, are truncated.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("request sent",
//	    "authorization", "Bearer abc", // logged as ***REDACTED***
//	    "kind", "sidebar",
//	)
package log
