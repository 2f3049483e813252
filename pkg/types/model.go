package types

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLType is the storage class declared for a column.
type SQLType string

// Supported storage classes.
const (
	TypeInteger SQLType = "INTEGER"
	TypeText    SQLType = "TEXT"
	TypeReal    SQLType = "REAL"
	TypeBlob    SQLType = "BLOB"
)

// Valid reports whether t is one of the supported storage classes.
func (t SQLType) Valid() bool {
	switch t {
	case TypeInteger, TypeText, TypeReal, TypeBlob:
		return true
	}
	return false
}

// TableDef names a table and the schema version that introduced it.
type TableDef struct {
	Name    string
	Version int
}

// Column describes one mapped field.
type Column struct {
	Name       string
	Type       SQLType
	PrimaryKey bool
	Mandatory  bool   // NOT NULL
	Unique     bool   // UNIQUE
	Version    int    // schema version that introduced the column
	Default    string // SQL literal; empty means no default
}

// Model is implemented by every persistent type.
//
// Columns, Values and ScanTarget must agree on column order and names.
// Values returns nil for null fields; the primary key is reported separately
// through PrimaryKey and is nil until the row has been inserted.
type Model interface {
	Table() TableDef
	Columns() []Column
	PrimaryKey() *int64
	SetPrimaryKey(id int64)
	Values() []any
	ScanTarget(column string) any
}

// Val dereferences p for binding, returning nil for a nil pointer.
func Val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// TimeVal converts a nullable time into unix milliseconds for binding.
func TimeVal(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// TimeTarget returns a scan destination that reads unix milliseconds into *dst.
func TimeTarget(dst **time.Time) sql.Scanner {
	return millisScanner{dst: dst}
}

type millisScanner struct {
	dst **time.Time
}

func (s millisScanner) Scan(src any) error {
	if src == nil {
		*s.dst = nil
		return nil
	}
	switch v := src.(type) {
	case int64:
		t := time.UnixMilli(v)
		*s.dst = &t
		return nil
	case float64:
		t := time.UnixMilli(int64(v))
		*s.dst = &t
		return nil
	case time.Time:
		*s.dst = &v
		return nil
	}
	return fmt.Errorf("scanning time: unsupported source %T", src)
}
