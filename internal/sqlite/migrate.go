package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// State is the lifecycle position of a Migrator.
type State int32

const (
	StateUnopened State = iota
	StateOpening
	StateCreating
	StateUpgrading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpening:
		return "opening"
	case StateCreating:
		return "creating"
	case StateUpgrading:
		return "upgrading"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Migrator brings a store's tables up to the latest version declared by the
// registry. Versions are store-wide and kept in PRAGMA user_version. Changes
// are additive only: tables and columns are created, never altered or dropped.
type Migrator struct {
	reg    *Registry
	logger *slog.Logger
	state  atomic.Int32
}

// NewMigrator returns a Migrator for reg. A nil logger uses slog.Default().
func NewMigrator(reg *Registry, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{reg: reg, logger: logger}
}

// State reports where the migrator is in its lifecycle.
func (m *Migrator) State() State { return State(m.state.Load()) }

// Migrate runs the creation or upgrade path and returns the version the
// store is left at. All steps from the stored version to the latest run in
// one transaction, so a failure leaves the store at its original version.
// Errors match types.ErrMigration or types.ErrDowngrade and the store must
// not be used afterwards.
func (m *Migrator) Migrate(ctx context.Context, db *sql.DB) (int, error) {
	m.state.Store(int32(StateOpening))

	current, err := userVersion(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("%w: reading version: %w", types.ErrMigration, err)
	}
	latest := m.reg.LatestVersion()

	switch {
	case current > latest:
		return current, fmt.Errorf("%w: store is at version %d, latest known is %d", types.ErrDowngrade, current, latest)
	case current == latest:
		m.state.Store(int32(StateReady))
		return current, nil
	case current == 0:
		m.state.Store(int32(StateCreating))
		m.logger.Info("creating store schema", "version", latest, "tables", len(m.reg.schemas))
		if err := m.inTx(ctx, db, latest, m.create); err != nil {
			return 0, err
		}
	default:
		m.state.Store(int32(StateUpgrading))
		m.logger.Info("upgrading store schema", "from", current, "to", latest)
		steps := func(ctx context.Context, tx *sql.Tx, latest int) error {
			for step := current + 1; step <= latest; step++ {
				m.logger.Debug("applying schema step", "step", step)
				if err := m.upgrade(ctx, tx, step); err != nil {
					return fmt.Errorf("step %d: %w", step, err)
				}
			}
			return nil
		}
		if err := m.inTx(ctx, db, latest, steps); err != nil {
			return current, err
		}
	}

	m.state.Store(int32(StateReady))
	return latest, nil
}

func (m *Migrator) inTx(ctx context.Context, db *sql.DB, version int, fn func(context.Context, *sql.Tx, int) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: version %d: %w", types.ErrMigration, version, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx, version); err != nil {
		return fmt.Errorf("%w: version %d: %w", types.ErrMigration, version, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("%w: version %d: setting version: %w", types.ErrMigration, version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: version %d: %w", types.ErrMigration, version, err)
	}
	return nil
}

// create builds every table at its latest shape. Tables that already exist
// in an unversioned file get their missing columns instead.
func (m *Migrator) create(ctx context.Context, tx *sql.Tx, latest int) error {
	for _, s := range m.reg.schemas {
		if err := m.ensureTable(ctx, tx, s, latest); err != nil {
			return err
		}
	}
	return nil
}

// upgrade applies one version step: tables introduced at step are created,
// columns introduced at step are added to older tables.
func (m *Migrator) upgrade(ctx context.Context, tx *sql.Tx, step int) error {
	for _, s := range m.reg.schemas {
		switch {
		case s.Version() == step:
			if err := m.ensureTable(ctx, tx, s, step); err != nil {
				return err
			}
		case s.Version() < step:
			existing, err := tableColumns(ctx, tx, s.Table())
			if err != nil {
				return err
			}
			for _, c := range s.columns {
				if c.Version != step || existing[c.Name] {
					continue
				}
				if err := m.addColumn(ctx, tx, s, c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ensureTable creates s as of version, or adds whatever columns up to
// version it is missing when the table is already there.
func (m *Migrator) ensureTable(ctx context.Context, tx *sql.Tx, s *Schema, version int) error {
	existing, err := tableColumns(ctx, tx, s.Table())
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		m.logger.Debug("creating table", "table", s.Table(), "version", version)
		if _, err := tx.ExecContext(ctx, s.CreateTableSQL(version)); err != nil {
			return fmt.Errorf("creating table %s: %w", s.Table(), err)
		}
		return nil
	}
	for _, c := range s.columns {
		if c.Version > version || existing[c.Name] {
			continue
		}
		if err := m.addColumn(ctx, tx, s, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) addColumn(ctx context.Context, tx *sql.Tx, s *Schema, c types.Column) error {
	m.logger.Debug("adding column", "table", s.Table(), "column", c.Name, "version", c.Version)
	for _, stmt := range s.AddColumnSQL(c) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", s.Table(), c.Name, err)
		}
	}
	return nil
}

func userVersion(ctx context.Context, h Handle) (int, error) {
	var v int
	if err := h.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// tableColumns returns the set of column names of table; empty when the
// table does not exist.
func tableColumns(ctx context.Context, h Handle, table string) (map[string]bool, error) {
	rows, err := h.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
