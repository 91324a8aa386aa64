package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the English Wikipedia API.
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

	// DefaultUserAgent identifies the client to the API operators, as the
	// Wikimedia User-Agent policy requires.
	DefaultUserAgent = "peoplenet/1.0 (https://github.com/nao1215/peoplenet)"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultRetryInterval is the first backoff delay.
	DefaultRetryInterval = 500 * time.Millisecond

	// DefaultRequestsPerSecond is the client-side rate limit.
	DefaultRequestsPerSecond = 5.0

	// DefaultBurst is the rate limiter bucket size.
	DefaultBurst = 5

	// DefaultThumbnailSize is the requested thumbnail width in pixels.
	DefaultThumbnailSize = 200

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 32 << 20

	// maxSearchBatch is the largest srlimit accepted for anonymous clients.
	maxSearchBatch = 50

	// maxRetryAfter caps the delay honoured from a Retry-After header.
	maxRetryAfter = 60
)

// retryableCodes are API error codes that go away on their own.
var retryableCodes = map[string]bool{
	"maxlag":      true,
	"ratelimited": true,
	"readonly":    true,
}

// Client queries a MediaWiki api.php endpoint.
// A Client is safe for concurrent use.
type Client struct {
	// endpoint is the api.php URL.
	endpoint string

	// httpClient performs the requests.
	httpClient *http.Client

	// userAgent is sent with every request.
	userAgent string

	// timeout bounds each HTTP request. Retries get a fresh timeout.
	timeout time.Duration

	// maxRetries is the number of retries after the first attempt.
	maxRetries uint

	// retryInterval is the first backoff delay.
	retryInterval time.Duration

	// limiter throttles outgoing requests.
	limiter *rate.Limiter

	// thumbnailSize is the pithumbsize parameter.
	thumbnailSize int

	// headers are added to every request.
	headers map[string]string

	// proxyAddress is an optional SOCKS5 proxy in "host:port" format.
	proxyAddress string

	logger  *slog.Logger
	metrics *Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint sets the api.php URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client. Used by tests to talk to httptest
// servers.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how often a transient failure is retried.
// 0 disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint(n)
		}
	}
}

// WithRetryInterval sets the first backoff delay. Later delays grow
// exponentially.
func WithRetryInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithRateLimit sets the request rate. A non-positive rps disables
// limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithThumbnailSize sets the requested thumbnail width in pixels.
func WithThumbnailSize(px int) ClientOption {
	return func(c *Client) {
		if px > 0 {
			c.thumbnailSize = px
		}
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithProxy routes requests through a SOCKS5 proxy.
func WithProxy(address string) ClientOption {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics sets the metrics collectors.
func WithClientMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client.
//
// The endpoint and proxy address are validated here, but nothing is sent
// over the network until the first query.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		endpoint:      DefaultEndpoint,
		userAgent:     DefaultUserAgent,
		timeout:       DefaultTimeout,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
		limiter:       rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
		thumbnailSize: DefaultThumbnailSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	u, err := url.Parse(c.endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.endpoint)
	}

	if c.httpClient == nil {
		transport, err := c.newTransport()
		if err != nil {
			return nil, err
		}
		c.httpClient = &http.Client{Transport: transport}
	}

	if len(c.headers) > 0 {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc := *c.httpClient
		hc.Transport = &headerInjectingTransport{base: base, headers: c.headers}
		c.httpClient = &hc
	}

	return c, nil
}

// newTransport builds the default transport, dialing through the SOCKS5
// proxy when one is configured.
func (c *Client) newTransport() (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConnsPerHost = 4
	if c.proxyAddress == "" {
		return transport, nil
	}

	if !isValidProxyAddress(c.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddress)
	}
	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Query implements Source.
func (c *Client) Query(ctx context.Context, q Query) (*Result, error) {
	if q.Kind == KindSearch || q.Kind.String() == "unknown" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, q.Kind)
	}
	if len(q.Titles) == 0 {
		return &Result{}, nil
	}
	if len(q.Titles) > MaxTitlesPerQuery {
		return nil, fmt.Errorf("%w: %d titles, limit is %d", ErrTooManyTitles, len(q.Titles), MaxTitlesPerQuery)
	}

	c.logger.Debug("content API query",
		"kind", q.Kind.String(),
		"titles", len(q.Titles),
		"continue", len(q.Continue) > 0,
	)

	resp, err := c.get(ctx, q.Kind, c.queryParams(q))
	if err != nil {
		return nil, err
	}
	return resp.result(q.Kind), nil
}

// queryParams builds the URL parameters of a page query.
func (c *Client) queryParams(q Query) url.Values {
	v := baseParams()
	v.Set("redirects", "1")
	v.Set("titles", strings.Join(q.Titles, "|"))

	switch q.Kind {
	case KindSidebar:
		v.Set("prop", "revisions")
		v.Set("rvprop", "content")
		v.Set("rvslots", "main")
		v.Set("rvsection", "0")
	case KindSummary:
		v.Set("prop", "extracts")
		v.Set("exintro", "1")
		v.Set("exlimit", "max")
	case KindThumbnail:
		v.Set("prop", "pageimages")
		v.Set("piprop", "thumbnail")
		v.Set("pithumbsize", strconv.Itoa(c.thumbnailSize))
		v.Set("pilimit", "max")
	}

	for key, value := range q.Continue {
		v.Set(key, value)
	}
	return v
}

func baseParams() url.Values {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("format", "json")
	v.Set("formatversion", "2")
	return v
}

// SearchHit is one full-text search result.
type SearchHit struct {
	// Title is the page title.
	Title string `json:"title"`

	// Snippet is the matching text with highlighting removed.
	Snippet string `json:"snippet"`
}

// Search runs a full-text search and returns up to limit hits, following
// continuation as needed. A non-positive limit means 10.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]SearchHit, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	hits := make([]SearchHit, 0, limit)
	var cont map[string]string
	for len(hits) < limit {
		v := baseParams()
		v.Set("list", "search")
		v.Set("srsearch", term)
		v.Set("srprop", "snippet")
		v.Set("srlimit", strconv.Itoa(min(limit-len(hits), maxSearchBatch)))
		for key, value := range cont {
			v.Set(key, value)
		}

		resp, err := c.get(ctx, KindSearch, v)
		if err != nil {
			return nil, err
		}
		if resp.Query == nil || len(resp.Query.Search) == 0 {
			break
		}
		for _, h := range resp.Query.Search {
			hits = append(hits, SearchHit{Title: h.Title, Snippet: htmlToText(h.Snippet)})
		}

		cont = resp.continueParams()
		if len(cont) == 0 {
			break
		}
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// get performs one API call with rate limiting, timeout and retries.
// Cancellation of ctx is returned as the context error, every other
// failure as *RemoteError.
func (c *Client) get(ctx context.Context, kind Kind, params url.Values) (*apiResponse, error) {
	reqURL := c.endpoint + "?" + params.Encode()

	attempt := 0
	var last *RemoteError
	operation := func() (*apiResponse, error) {
		attempt++
		if attempt > 1 {
			c.metrics.observeRetry(kind)
		}

		resp, err := c.do(ctx, kind, reqURL)
		if err == nil {
			return resp, nil
		}

		var remote *RemoteError
		if errors.As(err, &remote) {
			last = remote
			if remote.retryAfter > 0 {
				return nil, backoff.RetryAfter(remote.retryAfter)
			}
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 20 * c.retryInterval

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("retrying content API request",
				"kind", kind.String(),
				"attempt", attempt,
				"next", next,
				"error", err,
			)
		}),
	)
	if err == nil {
		c.metrics.observeRequest(kind, outcomeOK)
		return resp, nil
	}

	c.metrics.observeRequest(kind, outcomeError)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var remote *RemoteError
	if errors.As(err, &remote) {
		return nil, remote
	}
	if last != nil {
		return nil, last
	}
	return nil, &RemoteError{Kind: kind, Err: err}
}

// do sends a single request. Errors that must not be retried are wrapped
// with backoff.Permanent.
func (c *Client) do(ctx context.Context, kind Kind, reqURL string) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(&RemoteError{Kind: kind, Err: err})
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, &RemoteError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &RemoteError{Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		rerr := &RemoteError{Kind: kind, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rerr.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			return nil, rerr
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, rerr
		default:
			return nil, backoff.Permanent(rerr)
		}
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, backoff.Permanent(&RemoteError{Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)})
	}
	if out.Error != nil {
		rerr := &RemoteError{Kind: kind, StatusCode: resp.StatusCode, Code: out.Error.Code, Err: errors.New(out.Error.Info)}
		if retryableCodes[out.Error.Code] {
			return nil, rerr
		}
		return nil, backoff.Permanent(rerr)
	}
	return &out, nil
}

// parseRetryAfter parses the delay-seconds form of Retry-After. The
// HTTP-date form falls back to regular backoff.
func parseRetryAfter(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return min(n, maxRetryAfter)
}

// headerInjectingTransport wraps an http.RoundTripper to inject custom
// headers into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
