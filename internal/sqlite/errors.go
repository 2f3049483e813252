package sqlite

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// isConstraint reports whether err is a SQLite constraint failure
// (NOT NULL, UNIQUE, CHECK, FOREIGN KEY, PRIMARY KEY).
func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// wrapWrite annotates a failed write. Constraint failures additionally match
// types.ErrConstraint; the driver error stays in the chain.
func wrapWrite(op, table string, err error) error {
	if isConstraint(err) {
		return fmt.Errorf("%s %s: %w: %w", op, table, types.ErrConstraint, err)
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}
