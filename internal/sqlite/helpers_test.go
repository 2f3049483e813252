package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// libraryEntries registers every library model, mirroring library.Models
// without importing it.
func libraryEntries() []Entry {
	return []Entry{
		Register[types.Publisher](),
		Register[types.Author](),
		Register[types.Book](),
		Register[types.BookAuthor](),
		Register[types.Category](),
		Register[types.BookCategory](),
		Register[types.Series](),
		Register[types.BookLocation](),
		Register[types.ScannedIsbn](),
	}
}

func newRegistry(t *testing.T, entries ...Entry) *Registry {
	t.Helper()
	reg, err := NewRegistry(entries...)
	require.NoError(t, err)
	return reg
}

func openMemoryStore(t *testing.T, entries ...Entry) *Store {
	t.Helper()
	if len(entries) == 0 {
		entries = libraryEntries()
	}
	s, err := Open(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: types.MemoryDataDir}, newRegistry(t, entries...))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openFileStore(t *testing.T, dir string, entries ...Entry) *Store {
	t.Helper()
	s, err := Open(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: dir}, newRegistry(t, entries...))
	require.NoError(t, err)
	return s
}

// failingHandle fails the test on any call.
type failingHandle struct{ t *testing.T }

var errUnexpectedQuery = errors.New("unexpected query")

func (h failingHandle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	h.t.Errorf("unexpected exec: %s", query)
	return nil, errUnexpectedQuery
}

func (h failingHandle) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	h.t.Errorf("unexpected query: %s", query)
	return nil, errUnexpectedQuery
}

func (h failingHandle) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	h.t.Fatalf("unexpected query row: %s", query)
	return nil
}

// --- Test-local models for migration scenarios ---

// shelfBookV1 is a book table as first shipped.
type shelfBookV1 struct {
	ID     *int64
	Title  *string
	IsRead *bool
}

var shelfBookV1Columns = []types.Column{
	{Name: "ID", Type: types.TypeInteger, PrimaryKey: true, Version: 1},
	{Name: "TITLE", Type: types.TypeText, Mandatory: true, Version: 1},
	{Name: "IS_READ", Type: types.TypeInteger, Mandatory: true, Default: "0", Version: 1},
}

func (b *shelfBookV1) Table() types.TableDef { return types.TableDef{Name: "SHELF_BOOK", Version: 1} }
func (b *shelfBookV1) Columns() []types.Column { return shelfBookV1Columns }
func (b *shelfBookV1) PrimaryKey() *int64 { return b.ID }
func (b *shelfBookV1) SetPrimaryKey(id int64) { b.ID = &id }
func (b *shelfBookV1) Values() []any { return []any{types.Val(b.ID), types.Val(b.Title), types.Val(b.IsRead)} }
func (b *shelfBookV1) ScanTarget(col string) any { return scanTarget(col, &b.ID, &b.Title, &b.IsRead, nil) }

// shelfBookV2 is the same table after the favourite flag was added.
type shelfBookV2 struct {
	ID          *int64
	Title       *string
	IsRead      *bool
	IsFavourite *bool
}

var shelfBookV2Columns = append(append([]types.Column{}, shelfBookV1Columns...),
	types.Column{Name: "IS_FAVOURITE", Type: types.TypeInteger, Mandatory: true, Default: "0", Version: 2},
)

func (b *shelfBookV2) Table() types.TableDef { return types.TableDef{Name: "SHELF_BOOK", Version: 1} }
func (b *shelfBookV2) Columns() []types.Column { return shelfBookV2Columns }
func (b *shelfBookV2) PrimaryKey() *int64 { return b.ID }
func (b *shelfBookV2) SetPrimaryKey(id int64) { b.ID = &id }
func (b *shelfBookV2) Values() []any {
	return []any{types.Val(b.ID), types.Val(b.Title), types.Val(b.IsRead), types.Val(b.IsFavourite)}
}
func (b *shelfBookV2) ScanTarget(col string) any {
	return scanTarget(col, &b.ID, &b.Title, &b.IsRead, &b.IsFavourite)
}

// shelfShelf is a table introduced at version 2 with a unique column added
// at version 3.
type shelfShelf struct {
	ID   *int64
	Name *string
	Code *string
}

func (s *shelfShelf) Table() types.TableDef { return types.TableDef{Name: "SHELF_SHELF", Version: 2} }
func (s *shelfShelf) Columns() []types.Column {
	return []types.Column{
		{Name: "ID", Type: types.TypeInteger, PrimaryKey: true, Version: 2},
		{Name: "NAME", Type: types.TypeText, Version: 2},
		{Name: "CODE", Type: types.TypeText, Unique: true, Version: 3},
	}
}
func (s *shelfShelf) PrimaryKey() *int64 { return s.ID }
func (s *shelfShelf) SetPrimaryKey(id int64) { s.ID = &id }
func (s *shelfShelf) Values() []any { return []any{types.Val(s.ID), types.Val(s.Name), types.Val(s.Code)} }
func (s *shelfShelf) ScanTarget(col string) any {
	switch col {
	case "ID":
		return &s.ID
	case "NAME":
		return &s.Name
	case "CODE":
		return &s.Code
	}
	return nil
}

func scanTarget(col string, id **int64, title **string, isRead, isFavourite **bool) any {
	switch col {
	case "ID":
		return id
	case "TITLE":
		return title
	case "IS_READ":
		return isRead
	case "IS_FAVOURITE":
		if isFavourite != nil {
			return isFavourite
		}
	}
	return nil
}

// badModel lets schema tests declare arbitrary columns.
type badModel struct {
	table   types.TableDef
	columns []types.Column
	values  int
}

func (m *badModel) Table() types.TableDef { return m.table }
func (m *badModel) Columns() []types.Column { return m.columns }
func (m *badModel) PrimaryKey() *int64 { return nil }
func (m *badModel) SetPrimaryKey(int64) {}
func (m *badModel) Values() []any { return make([]any, m.values) }
func (m *badModel) ScanTarget(col string) any { return nil }

func columnNames(t *testing.T, h Handle, table string) map[string]bool {
	t.Helper()
	cols, err := tableColumns(context.Background(), h, table)
	require.NoError(t, err)
	return cols
}
