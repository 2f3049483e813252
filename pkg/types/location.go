package types

// BookLocation columns.
const (
	BookLocationColID   = "BKL_ID"
	BookLocationColName = "BKL_NAME"
)

var bookLocationColumns = []Column{
	{Name: BookLocationColID, Type: TypeInteger, PrimaryKey: true, Version: 4},
	{Name: BookLocationColName, Type: TypeText, Mandatory: true, Version: 4},
}

// BookLocation is where a physical copy is kept (a shelf, a room).
type BookLocation struct {
	ID   *int64
	Name *string
}

func (l *BookLocation) Table() TableDef { return TableDef{Name: BookLocationTable, Version: 4} }
func (l *BookLocation) Columns() []Column { return bookLocationColumns }
func (l *BookLocation) PrimaryKey() *int64 { return l.ID }
func (l *BookLocation) SetPrimaryKey(id int64) { l.ID = &id }
func (l *BookLocation) Values() []any { return []any{Val(l.ID), Val(l.Name)} }

func (l *BookLocation) ScanTarget(column string) any {
	switch column {
	case BookLocationColID:
		return &l.ID
	case BookLocationColName:
		return &l.Name
	}
	return nil
}
