package wiki

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRemote matches every failure talking to the content API.
	ErrRemote = errors.New("remote content API failure")

	// ErrTooManyTitles is returned when a query names more titles than the
	// API accepts in a single request.
	ErrTooManyTitles = errors.New("too many titles in one query")

	// ErrContinuationLoop is returned when the API keeps answering with the
	// same continuation token.
	ErrContinuationLoop = errors.New("continuation did not advance")

	// ErrUnsupportedKind is returned for a Query whose Kind cannot be
	// answered by Query.
	ErrUnsupportedKind = errors.New("unsupported query kind")

	// ErrInvalidEndpoint is returned when the API endpoint is not an
	// absolute http or https URL.
	ErrInvalidEndpoint = errors.New("invalid API endpoint: expected http or https URL")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is
	// not in "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// RemoteError describes a failed query against the content API.
type RemoteError struct {
	// Kind is the query that failed.
	Kind Kind

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Code is the API error code from the response body, if any.
	Code string

	// Err is the underlying cause.
	Err error

	// retryAfter is the Retry-After delay in seconds of a 429 response.
	retryAfter int
}

// Error implements error.
func (e *RemoteError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s query failed", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, " (%s)", e.Code)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes every RemoteError match ErrRemote.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
