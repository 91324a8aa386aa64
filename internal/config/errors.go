package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidEndpoint is returned when the endpoint is not an absolute
	// http or https URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint: must be an http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	// Use 0 to disable retries.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRateLimit is returned when the request rate is negative.
	// Use 0 to disable rate limiting.
	ErrInvalidRateLimit = errors.New("invalid requests per second: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is outside
	// 1..MaxBatchSize. The API rejects larger batches.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be between 1 and 50")

	// ErrInvalidConcurrency is returned when the concurrency is not
	// positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxDepth is returned when the maximum depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidDepth is returned when the depth is negative or above the
	// maximum depth.
	ErrInvalidDepth = errors.New("invalid depth: must be between 0 and max depth")

	// ErrInvalidMaxNodes is returned when the node limit is negative.
	// Use 0 for no limit.
	ErrInvalidMaxNodes = errors.New("invalid max nodes: must be non-negative")

	// ErrNoCacheDir is returned when the persistent cache is enabled
	// without a directory.
	ErrNoCacheDir = errors.New("cache enabled but no cache directory configured")

	// ErrInvalidResolution is returned when the community resolution is
	// not positive.
	ErrInvalidResolution = errors.New("invalid resolution: must be positive")

	// ErrInvalidLayout is returned when the layout iterations are negative
	// or the spacing is not positive.
	ErrInvalidLayout = errors.New("invalid layout settings: iterations must be non-negative and spacing positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a
	// time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
