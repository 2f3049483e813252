package types

// Author columns.
const (
	AuthorColID   = "AUT_ID"
	AuthorColName = "AUT_NAME"
)

var authorColumns = []Column{
	{Name: AuthorColID, Type: TypeInteger, PrimaryKey: true, Version: 1},
	{Name: AuthorColName, Type: TypeText, Mandatory: true, Unique: true, Version: 1},
}

// Author is a person credited on one or more books.
type Author struct {
	ID   *int64
	Name *string
}

func (a *Author) Table() TableDef { return TableDef{Name: AuthorTable, Version: 1} }
func (a *Author) Columns() []Column { return authorColumns }
func (a *Author) PrimaryKey() *int64 { return a.ID }
func (a *Author) SetPrimaryKey(id int64) { a.ID = &id }
func (a *Author) Values() []any { return []any{Val(a.ID), Val(a.Name)} }

func (a *Author) ScanTarget(column string) any {
	switch column {
	case AuthorColID:
		return &a.ID
	case AuthorColName:
		return &a.Name
	}
	return nil
}
