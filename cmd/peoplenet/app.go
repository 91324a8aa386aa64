package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nao1215/peoplenet/internal/community"
	"github.com/nao1215/peoplenet/internal/config"
	"github.com/nao1215/peoplenet/internal/crawler"
	"github.com/nao1215/peoplenet/internal/database"
	"github.com/nao1215/peoplenet/internal/export"
	"github.com/nao1215/peoplenet/internal/layout"
	peoplelog "github.com/nao1215/peoplenet/internal/log"
	"github.com/nao1215/peoplenet/internal/person"
	"github.com/nao1215/peoplenet/internal/report"
	"github.com/nao1215/peoplenet/internal/wiki"
)

// Report formats accepted by --format style arguments.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// buildConfig creates a Config from the configuration file and the flags
// of cmd. Flags only override the file when they were set explicitly, and
// flags cmd does not define keep the file value.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if flags.Lookup("config") != nil {
		if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
			return nil, err
		}
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	defined := func(name string) bool {
		return flags.Lookup(name) != nil
	}

	if defined("verbose") {
		if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
			return nil, err
		}
	}
	if changed("endpoint") {
		if cfg.Endpoint, err = flags.GetString("endpoint"); err != nil {
			return nil, err
		}
	}
	if changed("cache") {
		if cfg.UseCache, err = flags.GetBool("cache"); err != nil {
			return nil, err
		}
	}
	if changed("depth") {
		if cfg.Depth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}
	if changed("max-nodes") {
		if cfg.MaxNodes, err = flags.GetInt("max-nodes"); err != nil {
			return nil, err
		}
	}
	if defined("json") {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return nil, err
		}
	}
	if defined("markdown") {
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return nil, err
		}
	}
	if defined("output") {
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if defined("metrics-file") {
		if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newLogger creates the secure logger of a run. Configured header names
// are masked in addition to the built-in credential keys.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	headers := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		headers = append(headers, name)
	}
	return peoplelog.NewLogger(w, cfg.Verbose, peoplelog.WithSensitiveKeys(headers...))
}

// app wires the components of one run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	// registry collects the metrics of the run.
	registry *prometheus.Registry

	// client is nil when the app was built on a caller supplied source.
	client *wiki.Client

	// cache is nil when pages are kept in memory.
	cache *database.PageCache

	store    *wiki.Store
	builder  *crawler.Builder
	exporter *export.Exporter
}

// newApp builds the components described by cfg. A nil source creates an
// HTTP client for cfg.Endpoint.
func newApp(cfg *config.Config, logger *slog.Logger, source wiki.Source) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector())
	metrics := wiki.NewMetrics(a.registry)

	if source == nil {
		client, err := wiki.NewClient(
			wiki.WithEndpoint(cfg.Endpoint),
			wiki.WithUserAgent(cfg.UserAgent),
			wiki.WithTimeout(cfg.Timeout),
			wiki.WithMaxRetries(cfg.MaxRetries),
			wiki.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
			wiki.WithHeaders(cfg.Headers),
			wiki.WithProxy(cfg.ProxyAddress),
			wiki.WithClientLogger(logger),
			wiki.WithClientMetrics(metrics),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create content API client: %w", err)
		}
		a.client = client
		source = client
	}

	storeOpts := []wiki.StoreOption{
		wiki.WithBatchSize(cfg.BatchSize),
		wiki.WithConcurrency(cfg.Concurrency),
		wiki.WithStoreLogger(logger),
		wiki.WithStoreMetrics(metrics),
	}
	if cfg.UseCache {
		cache, err := database.Open(cfg.CacheDir, database.Options{
			CreateIfNotExists: true,
			EnableWAL:         true,
			Logger:            logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open page cache: %w", err)
		}
		logger.Debug("page cache opened", "path", cache.Path(), "pages", cache.Len())
		a.cache = cache
		storeOpts = append(storeOpts, wiki.WithCache(cache))
	} else {
		storeOpts = append(storeOpts, wiki.WithCache(wiki.NewMemoryCache()))
	}
	a.store = wiki.NewStore(source, storeOpts...)

	a.builder = crawler.NewBuilder(a.store,
		crawler.WithClassifier(person.NewClassifier(person.WithMarkers(cfg.Markers...))),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxNodes(cfg.MaxNodes),
		crawler.WithFollowFields(cfg.FollowFields...),
		crawler.WithIgnoreFields(cfg.IgnoreFields...),
		crawler.WithLogger(logger),
	)

	a.exporter = export.NewExporter(a.store,
		export.WithClusterer(community.NewClusterer(
			community.WithResolution(cfg.Resolution),
			community.WithSeed(cfg.Seed),
		)),
		export.WithLayoutEngine(layout.NewEngine(
			layout.WithIterations(cfg.Iterations),
			layout.WithSpacing(cfg.Spacing),
			layout.WithSeed(cfg.Seed),
		)),
	)

	return a, nil
}

// Close writes the metrics file, if one is configured, and closes the
// page cache.
func (a *app) Close() error {
	var errs []error
	if a.cfg.MetricsFile != "" {
		if err := a.writeMetrics(a.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// writeMetrics dumps the registry in the text exposition format, ready for
// the node_exporter textfile collector.
func (a *app) writeMetrics(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// newReport exports the current graph. A non-nil runErr marks the report
// partial.
func (a *app) newReport(roots []string, depth int, runErr error) *report.Report {
	view := a.exporter.Export(a.builder.Snapshot())
	r := report.NewReport(view, roots, depth)
	r.Version = getVersion()
	r.CachedPages = a.store.Len()
	if runErr != nil {
		r.Partial = true
		r.Error = runErr.Error()
	}
	return r
}

// newWriter returns the report writer for format.
func newWriter(out io.Writer, format string, verbose bool) (report.Writer, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint()), nil
	case formatMarkdown, "md":
		return report.NewMarkdownWriter(out), nil
	case formatText, "":
		return report.NewSimpleWriter(out, report.WithVerbose(verbose)), nil
	default:
		return nil, fmt.Errorf("unknown format %q (use text, json or markdown)", format)
	}
}

// reportFormat returns the format selected by the config flags.
func reportFormat(cfg *config.Config) string {
	switch {
	case cfg.JSONReport:
		return formatJSON
	case cfg.MarkdownReport:
		return formatMarkdown
	default:
		return formatText
	}
}

// openOutput returns the destination of a report: path, or stdout when
// path is empty. Closing stdout is a no-op.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{stdout}, nil
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
