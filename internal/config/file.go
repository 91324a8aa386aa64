package config

import "time"

// File represents the structure of the .peoplenet configuration file.
// Every field is optional; a missing field keeps the value already in the
// Config it is applied to. Fields whose zero value is meaningful are
// pointers so that "0" and "unset" stay distinguishable.
type File struct {
	API    APIConfig    `yaml:"api,omitempty"`
	Crawl  CrawlConfig  `yaml:"crawl,omitempty"`
	Cache  CacheConfig  `yaml:"cache,omitempty"`
	Export ExportConfig `yaml:"export,omitempty"`
}

// APIConfig configures the content API client.
type APIConfig struct {
	Endpoint          string            `yaml:"endpoint,omitempty"`
	UserAgent         string            `yaml:"user_agent,omitempty"`
	Timeout           time.Duration     `yaml:"timeout,omitempty"`
	MaxRetries        *int              `yaml:"max_retries,omitempty"`
	RequestsPerSecond *float64          `yaml:"requests_per_second,omitempty"`
	Burst             int               `yaml:"burst,omitempty"`
	Proxy             string            `yaml:"proxy,omitempty"`
	Headers           map[string]string `yaml:"headers,omitempty"`
}

// CrawlConfig configures graph expansion.
type CrawlConfig struct {
	Depth        *int     `yaml:"depth,omitempty"`
	MaxDepth     *int     `yaml:"max_depth,omitempty"`
	MaxNodes     *int     `yaml:"max_nodes,omitempty"`
	BatchSize    int      `yaml:"batch_size,omitempty"`
	Concurrency  int      `yaml:"concurrency,omitempty"`
	Markers      []string `yaml:"markers,omitempty"`
	FollowFields []string `yaml:"follow_fields,omitempty"`
	IgnoreFields []string `yaml:"ignore_fields,omitempty"`
}

// CacheConfig configures the persistent page cache.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ExportConfig configures community detection and layout.
type ExportConfig struct {
	Resolution float64 `yaml:"resolution,omitempty"`
	Seed       *uint64 `yaml:"seed,omitempty"`
	Iterations int     `yaml:"iterations,omitempty"`
	Spacing    float64 `yaml:"spacing,omitempty"`
}

// Apply overrides cfg with every value set in the file.
// Headers are merged, with file headers winning; lists replace.
func (cf *File) Apply(cfg *Config) {
	api := cf.API
	if api.Endpoint != "" {
		cfg.Endpoint = api.Endpoint
	}
	if api.UserAgent != "" {
		cfg.UserAgent = api.UserAgent
	}
	if api.Timeout != 0 {
		cfg.Timeout = api.Timeout
	}
	if api.MaxRetries != nil {
		cfg.MaxRetries = *api.MaxRetries
	}
	if api.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *api.RequestsPerSecond
	}
	if api.Burst != 0 {
		cfg.Burst = api.Burst
	}
	if api.Proxy != "" {
		cfg.ProxyAddress = api.Proxy
	}
	if len(api.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(api.Headers))
		}
		for k, v := range api.Headers {
			cfg.Headers[k] = v
		}
	}

	crawl := cf.Crawl
	if crawl.Depth != nil {
		cfg.Depth = *crawl.Depth
	}
	if crawl.MaxDepth != nil {
		cfg.MaxDepth = *crawl.MaxDepth
	}
	if crawl.MaxNodes != nil {
		cfg.MaxNodes = *crawl.MaxNodes
	}
	if crawl.BatchSize != 0 {
		cfg.BatchSize = crawl.BatchSize
	}
	if crawl.Concurrency != 0 {
		cfg.Concurrency = crawl.Concurrency
	}
	if len(crawl.Markers) > 0 {
		cfg.Markers = crawl.Markers
	}
	if len(crawl.FollowFields) > 0 {
		cfg.FollowFields = crawl.FollowFields
	}
	if len(crawl.IgnoreFields) > 0 {
		cfg.IgnoreFields = crawl.IgnoreFields
	}

	if cf.Cache.Enabled != nil {
		cfg.UseCache = *cf.Cache.Enabled
	}
	if cf.Cache.Dir != "" {
		cfg.CacheDir = cf.Cache.Dir
	}

	export := cf.Export
	if export.Resolution != 0 {
		cfg.Resolution = export.Resolution
	}
	if export.Seed != nil {
		cfg.Seed = *export.Seed
	}
	if export.Iterations != 0 {
		cfg.Iterations = export.Iterations
	}
	if export.Spacing != 0 {
		cfg.Spacing = export.Spacing
	}
}
