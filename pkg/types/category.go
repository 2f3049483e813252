package types

// Category columns.
const (
	CategoryColID   = "CAT_ID"
	CategoryColName = "CAT_NAME"
)

var categoryColumns = []Column{
	{Name: CategoryColID, Type: TypeInteger, PrimaryKey: true, Version: 2},
	{Name: CategoryColName, Type: TypeText, Mandatory: true, Unique: true, Version: 2},
}

// Category is a subject heading attached to books.
type Category struct {
	ID   *int64
	Name *string
}

func (c *Category) Table() TableDef { return TableDef{Name: CategoryTable, Version: 2} }
func (c *Category) Columns() []Column { return categoryColumns }
func (c *Category) PrimaryKey() *int64 { return c.ID }
func (c *Category) SetPrimaryKey(id int64) { c.ID = &id }
func (c *Category) Values() []any { return []any{Val(c.ID), Val(c.Name)} }

func (c *Category) ScanTarget(column string) any {
	switch column {
	case CategoryColID:
		return &c.ID
	case CategoryColName:
		return &c.Name
	}
	return nil
}
