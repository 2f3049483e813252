package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// JSONLFile returns the export file name for table.
func JSONLFile(table string) string { return table + ".jsonl" }

// ExportJSONL writes every registered table to <dir>/<TABLE>.jsonl, one row
// per line in primary key order. Each file is replaced atomically.
func ExportJSONL(ctx context.Context, h Handle, reg *Registry, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	for _, s := range reg.Schemas() {
		records, err := exportTable(ctx, h, s)
		if err != nil {
			return err
		}
		if err := writeJSONL(filepath.Join(dir, JSONLFile(s.Table())), records); err != nil {
			return fmt.Errorf("exporting %s: %w", s.Table(), err)
		}
	}
	return nil
}

func exportTable(ctx context.Context, h Handle, s *Schema) ([]json.RawMessage, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(s.ColumnNames(), ", "), s.Table(), s.PrimaryKey().Name)
	rows, err := h.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Table(), err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		vals := make([]any, len(s.columns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.Table(), err)
		}
		b, err := json.Marshal(rowRecord(s.columns, vals))
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", s.Table(), err)
		}
		records = append(records, b)
	}
	return records, rows.Err()
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// maxJSONLLine bounds one exported row; thumbnails make rows large.
const maxJSONLLine = 16 << 20

// writeJSONL atomically writes records to a JSONL file.
func writeJSONL(path string, records []json.RawMessage) error {
	return writeAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, rec := range records {
			if _, err := bw.Write(rec); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("writing newline: %w", err)
			}
		}
		return bw.Flush()
	})
}

// writeAtomic fills a temp file next to path with fill, syncs it and renames
// it over path. On failure path is untouched.
func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
