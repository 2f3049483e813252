package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// BackupFileName is the name of the copy written by Store.Backup.
const BackupFileName = "shelf.sqlite"

// CopyStore copies the database file at src to dst byte for byte. dst is
// replaced atomically. A missing src returns an error matching
// types.ErrNoStore.
func CopyStore(src, dst string) error {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("copying %s: %w", src, types.ErrNoStore)
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	return writeAtomic(dst, func(w io.Writer) error {
		if _, err := io.Copy(w, in); err != nil {
			return fmt.Errorf("copying %s: %w", src, err)
		}
		return nil
	})
}

// Backup folds the write-ahead log into the database file and copies it to
// <dir>/shelf.sqlite. It returns the path written.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", types.ErrStoreClosed
	}
	if s.path == "" {
		return "", fmt.Errorf("backing up in-memory store: %w", types.ErrNoStore)
	}
	// Holding the only connection keeps writers out until the copy is done.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("checkpointing: %w", err)
	}

	dst := filepath.Join(dir, BackupFileName)
	if err := CopyStore(s.path, dst); err != nil {
		return "", err
	}
	return dst, nil
}
