package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private database that lives until Close.
const MemoryPath = ":memory:"

// DefaultBusyTimeout is how long a write waits for another process's lock.
const DefaultBusyTimeout = 5 * time.Second

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = []string{
	// 1: one script per insertion slot.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scripts_seq ON scripts(seq)`,
}

var (
	// ErrNotFound is returned when no script has the requested ID.
	ErrNotFound = errors.New("script not found")

	// ErrEmptyID is returned when writing a script without an ID.
	ErrEmptyID = errors.New("script id is empty")
)

// Store keeps installed scripts in SQLite, in first-insertion order.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

type openOptions struct {
	logger      *zap.Logger
	busyTimeout time.Duration
}

// Option configures Open.
type Option func(*openOptions)

// WithLogger sets the logger for the store.
func WithLogger(logger *zap.Logger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithBusyTimeout overrides DefaultBusyTimeout. Non-positive values keep it.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *openOptions) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// OpenMemory opens an empty store at MemoryPath.
func OpenMemory(opts ...Option) (*Store, error) {
	return Open(MemoryPath, opts...)
}

// Open opens the script database at path, creating it and bringing the
// schema up to date as needed. Reopening an existing file keeps its scripts.
func Open(path string, opts ...Option) (*Store, error) {
	o := openOptions{logger: zap.NewNop(), busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open script store %s: %w", path, err)
	}
	// One connection: SQLite has a single writer, and MemoryPath is
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: o.logger}
	version, err := s.prepare(path, o.busyTimeout)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open script store %s: %w", path, err)
	}

	s.logger.Debug("script store opened",
		zap.String("path", path),
		zap.Int("schema_version", version),
	)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// prepare configures the connection, creates the scripts table and runs
// pending migrations. It returns the resulting schema version.
func (s *Store) prepare(path string, busyTimeout time.Duration) (int, error) {
	journal := "WAL"
	if path == MemoryPath {
		journal = "MEMORY"
	}
	pragmas := []string{
		"PRAGMA journal_mode = " + journal,
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return 0, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}
	return s.migrate()
}

// migrate applies each pending migration in its own transaction together
// with the user_version bump.
func (s *Store) migrate() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	for ; version < len(migrations); version++ {
		tx, err := s.db.Begin()
		if err != nil {
			return version, fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		if _, err := tx.Exec(migrations[version]); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("migrate to v%d: set user_version: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return version, fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		s.logger.Info("script store migrated", zap.Int("schema_version", version+1))
	}
	return version, nil
}
