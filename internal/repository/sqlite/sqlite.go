package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Repository stores resource snapshots and the layout cache in SQLite.
// It implements repository.Repository and cache.Store.
type Repository struct {
	db *sql.DB
}

// Option configures a Repository
type Option func(*options)

type options struct {
	maxPageCount int
}

// WithMaxPageCount caps the database size in pages. Writes past the cap
// fail with cache.ErrQuotaExceeded.
func WithMaxPageCount(n int) Option {
	return func(o *options) {
		o.maxPageCount = n
	}
}

// New opens (or creates) the database at dbPath and migrates the schema.
// ":memory:" opens a private in-memory database.
func New(dbPath string, opts ...Option) (*Repository, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: in-memory databases are per connection and
	// max_page_count is a connection setting.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if o.maxPageCount > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA max_page_count = %d", o.maxPageCount)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set max page count: %w", err)
		}
	}

	return repo, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		data JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_resources_kind ON resources(kind);
	CREATE INDEX IF NOT EXISTS idx_resources_ordinal ON resources(ordinal);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Ping checks the connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
