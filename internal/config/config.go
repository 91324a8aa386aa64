package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "peoplenet"

	// DefaultEndpoint is the English Wikipedia api.php endpoint.
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

	// DefaultUserAgent identifies peoplenet to the API operators.
	// Wikimedia asks every client to send a descriptive User-Agent with a
	// contact URL.
	DefaultUserAgent = "peoplenet/1.0 (https://github.com/nao1215/peoplenet)"

	// DefaultTimeout bounds a single API request. Retries get a fresh
	// timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is the number of retries after a transient failure.
	DefaultMaxRetries = 3

	// DefaultRequestsPerSecond keeps the client well below the limits
	// Wikimedia applies to anonymous clients.
	DefaultRequestsPerSecond = 5.0

	// DefaultBurst is the rate limiter bucket size.
	DefaultBurst = 5

	// MaxBatchSize is the largest number of titles one query may carry.
	MaxBatchSize = 50

	// DefaultBatchSize is the number of titles per query.
	DefaultBatchSize = MaxBatchSize

	// DefaultConcurrency is the number of queries in flight per level.
	DefaultConcurrency = 4

	// DefaultDepth is the expansion depth used when none is given.
	DefaultDepth = 1

	// DefaultMaxDepth is the deepest expansion accepted. Every extra level
	// multiplies the number of fetched pages, so deeper crawls are opt-in.
	DefaultMaxDepth = 5

	// DefaultMaxNodes bounds how many people one expansion may add.
	DefaultMaxNodes = 1000

	// DefaultResolution is the community detection resolution.
	DefaultResolution = 1.0

	// DefaultSeed seeds community detection and layout, so repeated
	// exports of the same graph agree.
	DefaultSeed uint64 = 1

	// DefaultIterations is the number of layout updates per component.
	DefaultIterations = 100

	// DefaultSpacing is the layout radius allotted to one node.
	DefaultSpacing = 50.0
)

// DefaultMarkers are the infobox fields that mark a page as a person.
var DefaultMarkers = []string{"birth_date"}

// Config holds all configuration options for peoplenet.
// This struct is populated from the configuration file and CLI flags and
// passed through the application rather than kept in global state.
//
// Design decision: We keep a single flat struct like the flag set it mirrors.
// The YAML file is grouped into sections (see File), and File.Apply flattens
// it onto a Config.
type Config struct {
	// Endpoint is the api.php URL of the content API.
	Endpoint string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds each API request.
	Timeout time.Duration

	// MaxRetries is the number of retries after a transient failure.
	// 0 disables retries.
	MaxRetries int

	// RequestsPerSecond is the client-side rate limit. 0 disables
	// limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter bucket size.
	Burst int

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Headers are extra HTTP headers sent with every request, for example
	// an API token of a private wiki.
	Headers map[string]string

	// BatchSize is the number of titles per query, 1 to MaxBatchSize.
	BatchSize int

	// Concurrency is the number of queries in flight per level.
	Concurrency int

	// Depth is the expansion depth of the crawl command.
	Depth int

	// MaxDepth is the deepest expansion accepted by any command.
	MaxDepth int

	// MaxNodes bounds how many people one expansion may add.
	// 0 means unlimited.
	MaxNodes int

	// Markers are the infobox fields that mark a page as a person.
	Markers []string

	// FollowFields restricts expansion to infobox fields matching these
	// glob patterns. Empty means every field.
	FollowFields []string

	// IgnoreFields are infobox field patterns never followed. They win
	// over FollowFields.
	IgnoreFields []string

	// UseCache persists fetched pages in a SQLite database under CacheDir.
	// When false (the default), pages are kept in memory for the life of
	// the process.
	UseCache bool

	// CacheDir is the directory of the page cache database.
	// Defaults to XDG cache directory (~/.cache/peoplenet on Linux).
	CacheDir string

	// Resolution is the community detection resolution.
	Resolution float64

	// Seed seeds community detection and layout.
	Seed uint64

	// Iterations is the number of layout updates per component.
	Iterations int

	// Spacing is the layout radius allotted to one node.
	Spacing float64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// JSONReport selects JSON output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with
	// JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. Empty means
	// stdout.
	ReportFile string

	// MetricsFile is a path the Prometheus metrics are written to in text
	// exposition format after the run. Empty disables the dump.
	MetricsFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .peoplenet is looked up in the current directory and then
	// in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, batch size).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Endpoint:          DefaultEndpoint,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
		BatchSize:         DefaultBatchSize,
		Concurrency:       DefaultConcurrency,
		Depth:             DefaultDepth,
		MaxDepth:          DefaultMaxDepth,
		MaxNodes:          DefaultMaxNodes,
		Markers:           append([]string(nil), DefaultMarkers...),
		UseCache:          false,
		CacheDir:          XDGCacheDir(),
		Resolution:        DefaultResolution,
		Seed:              DefaultSeed,
		Iterations:        DefaultIterations,
		Spacing:           DefaultSpacing,
	}
}

// XDGDataDir returns the XDG data directory for peoplenet.
// On Linux: ~/.local/share/peoplenet
// On macOS: ~/Library/Application Support/peoplenet
// On Windows: %LOCALAPPDATA%\peoplenet
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for peoplenet.
// On Linux: ~/.config/peoplenet
// On macOS: ~/Library/Application Support/peoplenet
// On Windows: %APPDATA%\peoplenet
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for peoplenet. The page
// cache lives here: it can be deleted at any time and is rebuilt on
// demand.
// On Linux: ~/.cache/peoplenet
// On macOS: ~/Library/Caches/peoplenet
// On Windows: %LOCALAPPDATA%\peoplenet\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first rule that is violated.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after the file and the flags are merged, before any
// request is sent.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidEndpoint
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.RequestsPerSecond < 0 {
		return ErrInvalidRateLimit
	}

	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return ErrInvalidBatchSize
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.Depth < 0 || c.Depth > c.MaxDepth {
		return ErrInvalidDepth
	}

	if c.MaxNodes < 0 {
		return ErrInvalidMaxNodes
	}

	if c.UseCache && c.CacheDir == "" {
		return ErrNoCacheDir
	}

	if c.Resolution <= 0 {
		return ErrInvalidResolution
	}

	if c.Iterations < 0 || c.Spacing <= 0 {
		return ErrInvalidLayout
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
