package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/peoplenet/internal/model"
	"github.com/nao1215/peoplenet/internal/wiki"
)

// FileName is the database file created inside the cache directory.
const FileName = "peoplenet.db"

// PageCache is a wiki.Cache stored in SQLite.
type PageCache struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the database file, empty for an in-memory database.
	dbPath string

	// logger reports read failures, which the Cache interface cannot
	// return.
	logger *slog.Logger
}

var _ wiki.Cache = (*PageCache)(nil)

// Options configures PageCache behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Ignored for in-memory
	// databases.
	EnableWAL bool

	// Logger receives read failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a PageCache in dbDir. An empty dbDir opens a
// private in-memory database.
func Open(dbDir string, opts Options) (*PageCache, error) {
	var dsn, dbPath string
	if dbDir == "" {
		dsn = ":memory:"
	} else {
		dbPath = filepath.Join(dbDir, FileName)
		if !opts.CreateIfNotExists {
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
			} else if err != nil {
				return nil, fmt.Errorf("failed to check database path: %w", err)
			}
			dsn = dbPath + "?mode=rw"
		} else {
			if err := os.MkdirAll(dbDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			dsn = dbPath + "?mode=rwc"
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database lives exactly as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pc := &PageCache{
		db:     db,
		dbPath: dbPath,
		logger: opts.Logger,
	}
	if pc.logger == nil {
		pc.logger = slog.Default()
	}

	ctx := context.Background()
	if opts.EnableWAL && dbPath != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := pc.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// The graph is rebuilt from scratch every run.
	if _, err := db.ExecContext(ctx, "UPDATE pages SET user_added = 0 WHERE user_added != 0"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reset user-added flags: %w", err)
	}

	return pc, nil
}

// Close closes the database connection.
func (pc *PageCache) Close() error {
	return pc.db.Close()
}

// Path returns the database file, empty for an in-memory database.
func (pc *PageCache) Path() string {
	return pc.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (pc *PageCache) createTables(ctx context.Context) error {
	schema := `
	-- Pages are keyed by canonical title and never replaced once stored
	CREATE TABLE IF NOT EXISTS pages (
		title TEXT PRIMARY KEY,
		sidebar TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		portrait_url TEXT NOT NULL DEFAULT '',
		user_added INTEGER NOT NULL DEFAULT 0,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Aliases map requested spellings and redirects to canonical titles
	CREATE TABLE IF NOT EXISTS aliases (
		alias TEXT PRIMARY KEY,
		title TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_aliases_title ON aliases(title);
	`

	_, err := pc.db.ExecContext(ctx, schema)
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lookup reads the page of a canonical title or alias. Canonical titles
// take precedence over aliases of the same spelling.
func lookup(ctx context.Context, q querier, title string) (*model.Page, error) {
	query := `
	SELECT title, sidebar, summary, portrait_url, user_added
	FROM pages
	WHERE title = ?1 OR title = (SELECT title FROM aliases WHERE alias = ?1)
	ORDER BY title = ?1 DESC
	LIMIT 1
	`

	var p model.Page
	err := q.QueryRowContext(ctx, query, title).Scan(&p.Title, &p.Sidebar, &p.Summary, &p.PortraitURL, &p.UserAdded)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Lookup implements wiki.Cache. Read failures are logged and reported as
// a miss.
func (pc *PageCache) Lookup(title string) (*model.Page, bool) {
	p, err := lookup(context.Background(), pc.db, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		pc.logger.Warn("page cache lookup failed", "title", title, "error", err)
		return nil, false
	}
	return p, true
}

// Commit implements wiki.Cache. The batch is written in one transaction.
func (pc *PageCache) Commit(b wiki.Batch) (err error) {
	ctx := context.Background()
	tx, err := pc.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, p := range b.Pages {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (title, sidebar, summary, portrait_url, user_added)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(title) DO NOTHING
		`, p.Title, p.Sidebar, p.Summary, p.PortraitURL, p.UserAdded)
		if err != nil {
			return fmt.Errorf("failed to insert page %q: %w", p.Title, err)
		}
	}

	for alias, title := range b.Aliases {
		if alias == title {
			continue
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO aliases (alias, title) VALUES (?, ?)
		ON CONFLICT(alias) DO UPDATE SET title = excluded.title
		`, alias, title)
		if err != nil {
			return fmt.Errorf("failed to insert alias %q: %w", alias, err)
		}
	}

	for title, url := range b.Portraits {
		p, lerr := lookup(ctx, tx, title)
		if errors.Is(lerr, sql.ErrNoRows) {
			continue
		}
		if lerr != nil {
			err = fmt.Errorf("failed to resolve %q: %w", title, lerr)
			return err
		}
		if _, err = tx.ExecContext(ctx, "UPDATE pages SET portrait_url = ? WHERE title = ?", url, p.Title); err != nil {
			return fmt.Errorf("failed to set portrait of %q: %w", p.Title, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update implements wiki.Cache.
func (pc *PageCache) Update(title string, fn func(*model.Page)) (_ bool, err error) {
	ctx := context.Background()
	tx, err := pc.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := lookup(ctx, tx, title)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", title, err)
	}

	canonical := p.Title
	fn(p)
	_, err = tx.ExecContext(ctx, `
	UPDATE pages SET sidebar = ?, summary = ?, portrait_url = ?, user_added = ?
	WHERE title = ?
	`, p.Sidebar, p.Summary, p.PortraitURL, p.UserAdded, canonical)
	if err != nil {
		return false, fmt.Errorf("failed to update %q: %w", canonical, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// Each implements wiki.Cache. Rows are read completely before fn is
// called, so fn may use the cache.
func (pc *PageCache) Each(fn func(*model.Page) bool) error {
	rows, err := pc.db.QueryContext(context.Background(), `
	SELECT title, sidebar, summary, portrait_url, user_added
	FROM pages
	ORDER BY title
	`)
	if err != nil {
		return fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []*model.Page
	for rows.Next() {
		var p model.Page
		if err := rows.Scan(&p.Title, &p.Sidebar, &p.Summary, &p.PortraitURL, &p.UserAdded); err != nil {
			return fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, &p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate pages: %w", err)
	}
	rows.Close()

	for _, p := range pages {
		if !fn(p) {
			break
		}
	}
	return nil
}

// Len implements wiki.Cache.
func (pc *PageCache) Len() int {
	var n int
	if err := pc.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM pages").Scan(&n); err != nil {
		pc.logger.Warn("page cache count failed", "error", err)
		return 0
	}
	return n
}
