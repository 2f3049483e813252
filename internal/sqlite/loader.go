package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// ImportStats counts what ImportJSONL did per table.
type ImportStats struct {
	Table    string `json:"table"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// ImportJSONL loads <dir>/<TABLE>.jsonl for every registered table in one
// transaction; on any error nothing is changed. A table whose file exists is
// replaced by the file's rows, keeping their ids. Missing files leave their
// table alone. Malformed lines and rows that violate a constraint are
// skipped; fields that match no column are ignored.
func ImportJSONL(ctx context.Context, db *sql.DB, reg *Registry, dir string) ([]ImportStats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	var stats []ImportStats
	for _, s := range reg.Schemas() {
		records, err := readJSONL(filepath.Join(dir, JSONLFile(s.Table())))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.Table()); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", s.Table(), err)
		}
		st, err := insertRecords(ctx, tx, s, records)
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", s.Table(), err)
		}
		stats = append(stats, st)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import transaction: %w", err)
	}
	return stats, nil
}

// insertRecords inserts every record. Columns absent from a record take
// their declared default when they have one and are written as null
// otherwise.
func insertRecords(ctx context.Context, tx *sql.Tx, s *Schema, records []json.RawMessage) (ImportStats, error) {
	st := ImportStats{Table: s.Table()}
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	for i, line := range records {
		rec, err := parseRecord(line)
		if err != nil {
			st.Skipped++
			continue
		}
		cols := make([]string, 0, len(s.columns))
		args := make([]any, 0, len(s.columns))
		valid := true
		for _, c := range s.columns {
			raw, ok := rec[c.Name]
			if !ok && c.Default != "" {
				continue
			}
			v, err := columnValue(c, raw)
			if err != nil {
				slog.Debug("skipping record", "table", s.Table(), "line", i+1, "error", err)
				valid = false
				break
			}
			cols = append(cols, c.Name)
			args = append(args, v)
		}
		if !valid {
			st.Skipped++
			continue
		}

		key := strings.Join(cols, ", ")
		stmt, ok := stmts[key]
		if !ok {
			insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.Table(), key, placeholders(len(cols)))
			if stmt, err = tx.PrepareContext(ctx, insertSQL); err != nil {
				return st, fmt.Errorf("preparing insert: %w", err)
			}
			stmts[key] = stmt
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if isConstraint(err) {
				slog.Debug("skipping record", "table", s.Table(), "line", i+1, "error", err)
				st.Skipped++
				continue
			}
			return st, err
		}
		st.Imported++
	}
	return st, nil
}
