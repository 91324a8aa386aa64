package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaskValue is the string used to replace sensitive values.
	MaskValue = "***REDACTED***"

	// DefaultMaxValueLength is the longest string value logged unchanged.
	DefaultMaxValueLength = 256

	// truncatedSuffix marks a truncated value.
	truncatedSuffix = "...(truncated)"
)

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,

	// Authentication
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"refresh_token": true,

	// Session
	"session":    true,
	"session_id": true,
	"sessionid":  true,

	// Credentials
	"credential":  true,
	"credentials": true,
}

// sensitiveKeywords mark a key as sensitive when they appear anywhere in it.
// The bare "key" is left out: it would catch harmless keys such as
// "field_key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "cookie", "credential",
}

// sensitivePatterns contains regex patterns that indicate sensitive values.
// Values matching these patterns will be sanitized regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Long alphanumeric strings such as OAuth owner-only tokens
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// SecureHandler wraps an slog.Handler to sanitize log attributes.
// It masks attribute values that match sensitive key names or value
// patterns, and truncates long strings before passing the record to the
// underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Every package keeps taking a plain *slog.Logger
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler

	// extraKeys are additional lower-case keys to mask, usually the names
	// of configured custom headers.
	extraKeys map[string]bool

	// maxLen is the longest string value logged unchanged, in runes.
	// 0 disables truncation.
	maxLen int
}

// HandlerOption configures a SecureHandler.
type HandlerOption func(*SecureHandler)

// WithSensitiveKeys masks attributes with any of the given keys, matched
// case-insensitively.
func WithSensitiveKeys(keys ...string) HandlerOption {
	return func(h *SecureHandler) {
		for _, k := range keys {
			h.extraKeys[strings.ToLower(k)] = true
		}
	}
}

// WithMaxValueLength sets the longest string value logged unchanged.
// 0 disables truncation.
func WithMaxValueLength(n int) HandlerOption {
	return func(h *SecureHandler) {
		if n >= 0 {
			h.maxLen = n
		}
	}
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler, opts ...HandlerOption) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{
		handler:   handler,
		extraKeys: make(map[string]bool),
		maxLen:    DefaultMaxValueLength,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return h.with(h.handler.WithAttrs(sanitizedAttrs))
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return h.with(h.handler.WithGroup(name))
}

func (h *SecureHandler) with(handler slog.Handler) *SecureHandler {
	return &SecureHandler{handler: handler, extraKeys: h.extraKeys, maxLen: h.maxLen}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	if h.isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		return slog.String(a.Key, truncate(s, h.maxLen))
	}

	return a
}

// isSensitiveKey reports whether key names a credential.
func (h *SecureHandler) isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return sensitiveKeys[k] || h.extraKeys[k] || containsSensitiveKeyword(k)
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// truncate shortens s to maxLen runes plus a marker.
func truncate(s string, maxLen int) string {
	if maxLen == 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + truncatedSuffix
}

// level maps the verbose flag to a log level.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger creates a text slog.Logger with secure handling.
// verbose sets the level to Debug; otherwise Warn.
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(textHandler, opts...))
}

// NewJSONLogger creates a JSON slog.Logger with secure handling. Useful
// for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(jsonHandler, opts...))
}
