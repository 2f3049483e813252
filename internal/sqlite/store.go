package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// StoreFileName is the database file created inside the data directory.
const StoreFileName = "shelf.db"

// busyTimeoutMillis is how long a statement waits on a locked database.
const busyTimeoutMillis = 5000

// Store is an open, migrated shelf database.
type Store struct {
	mu      sync.RWMutex
	closed  bool
	config  types.Config
	path    string
	db      *sql.DB
	reg     *Registry
	version int
	logger  *slog.Logger
}

// Option configures Open.
type Option func(*Store)

// WithLogger sets the logger used by the store and its migrator.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates the data directory if needed, opens the database in it and
// migrates it to the latest version declared by reg. A DataDir of
// types.MemoryDataDir opens an in-memory store.
func Open(ctx context.Context, cfg types.Config, reg *Registry, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{config: cfg, reg: reg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	dsn := types.MemoryDataDir
	if cfg.DataDir != types.MemoryDataDir {
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		s.path = filepath.Join(dataDir, StoreFileName)
		dsn = s.path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Single connection. An in-memory database lives exactly as long as it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if s.path != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting journal mode: %w", err)
		}
	}

	version, err := NewMigrator(reg, s.logger).Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	s.version = version
	s.logger.Debug("store opened", "path", s.path, "version", version)
	return s, nil
}

// DB returns the underlying handle. It is nil after Close.
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Path returns the database file path, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// CurrentStorePath is the file a backup copies. It is "" for an in-memory store.
func (s *Store) CurrentStorePath() string { return s.path }

// Registry returns the registry the store was migrated against.
func (s *Store) Registry() *Registry { return s.reg }

// Version returns the schema version the store was left at by Open.
func (s *Store) Version() int { return s.version }

// Config returns the configuration the store was opened with.
func (s *Store) Config() types.Config { return s.config }

// WithTx runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
