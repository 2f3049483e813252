// Package sqlite implements the shelf persistence core on SQLite: schema
// descriptors derived from types.Model declarations, a generic per-model
// broker, the broker registry, the additive migration runner, and the store
// that ties them to a database file.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Schema is the immutable description of one model's table.
type Schema struct {
	table   string
	version int
	columns []types.Column
	index   map[string]int
	pk      int
}

// NewSchema derives a Schema from the declarations of m. It returns an error
// wrapping types.ErrInvalidSchema when the declarations are malformed.
func NewSchema(m types.Model) (*Schema, error) {
	def := m.Table()
	if def.Name == "" {
		return nil, fmt.Errorf("%w: empty table name", types.ErrInvalidSchema)
	}
	if def.Version < 1 {
		return nil, fmt.Errorf("%w: table %s: version must be at least 1", types.ErrInvalidSchema, def.Name)
	}

	decl := m.Columns()
	s := &Schema{
		table:   def.Name,
		version: def.Version,
		columns: make([]types.Column, len(decl)),
		index:   make(map[string]int, len(decl)),
		pk:      -1,
	}
	copy(s.columns, decl)

	for i, c := range s.columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: table %s: column %d has no name", types.ErrInvalidSchema, def.Name, i)
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: table %s: duplicate column %s", types.ErrInvalidSchema, def.Name, c.Name)
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("%w: table %s: column %s: unsupported type %q", types.ErrInvalidSchema, def.Name, c.Name, c.Type)
		}
		if c.Version < def.Version {
			return nil, fmt.Errorf("%w: table %s: column %s introduced at version %d, before its table (%d)",
				types.ErrInvalidSchema, def.Name, c.Name, c.Version, def.Version)
		}
		if c.PrimaryKey {
			if s.pk >= 0 {
				return nil, fmt.Errorf("%w: table %s: more than one primary key", types.ErrInvalidSchema, def.Name)
			}
			if c.Type != types.TypeInteger {
				return nil, fmt.Errorf("%w: table %s: primary key %s must be INTEGER", types.ErrInvalidSchema, def.Name, c.Name)
			}
			if c.Version != def.Version {
				return nil, fmt.Errorf("%w: table %s: primary key %s must be introduced with its table", types.ErrInvalidSchema, def.Name, c.Name)
			}
			s.pk = i
		}
		if c.Version > def.Version && c.Mandatory && c.Default == "" {
			return nil, fmt.Errorf("%w: table %s: mandatory column %s added at version %d needs a default",
				types.ErrInvalidSchema, def.Name, c.Name, c.Version)
		}
		s.index[c.Name] = i
	}
	if s.pk < 0 {
		return nil, fmt.Errorf("%w: table %s: no primary key", types.ErrInvalidSchema, def.Name)
	}
	if n := len(m.Values()); n != len(s.columns) {
		return nil, fmt.Errorf("%w: table %s: %d values for %d columns", types.ErrInvalidSchema, def.Name, n, len(s.columns))
	}
	return s, nil
}

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// Version returns the schema version that introduced the table.
func (s *Schema) Version() int { return s.version }

// Columns returns a copy of the column descriptors in declaration order.
func (s *Schema) Columns() []types.Column {
	out := make([]types.Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// PrimaryKey returns the primary key column.
func (s *Schema) PrimaryKey() types.Column { return s.columns[s.pk] }

// Column looks up a column by name.
func (s *Schema) Column(name string) (types.Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return types.Column{}, false
	}
	return s.columns[i], true
}

// LatestVersion is the highest version declared by the table or any column.
func (s *Schema) LatestVersion() int {
	v := s.version
	for _, c := range s.columns {
		if c.Version > v {
			v = c.Version
		}
	}
	return v
}

// ColumnNames returns the column names in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// checkColumns returns types.ErrUnknownColumn for the first name not in s.
func (s *Schema) checkColumns(names []string) error {
	for _, n := range names {
		if _, ok := s.index[n]; !ok {
			return fmt.Errorf("%w: %s.%s", types.ErrUnknownColumn, s.table, n)
		}
	}
	return nil
}

// CreateTableSQL returns the CREATE TABLE statement for the table as it
// stood at version. Columns introduced later are left for AddColumnSQL.
func (s *Schema) CreateTableSQL(version int) string {
	var defs []string
	for _, c := range s.columns {
		if c.Version > version {
			continue
		}
		defs = append(defs, "    "+columnDef(c, true))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", s.table, strings.Join(defs, ",\n"))
}

// AddColumnSQL returns the statements that add c to an existing table.
// SQLite cannot add a UNIQUE column, so uniqueness becomes an index.
func (s *Schema) AddColumnSQL(c types.Column) []string {
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", s.table, columnDef(c, false))}
	if c.Unique {
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_%s ON %s(%s);",
			strings.ToLower(s.table), strings.ToLower(c.Name), s.table, c.Name))
	}
	return stmts
}

func columnDef(c types.Column, inline bool) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(string(c.Type))
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
		return b.String()
	}
	if c.Mandatory {
		b.WriteString(" NOT NULL")
	}
	if c.Unique && inline {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}
