package types

// Series columns.
const (
	SeriesColID   = "SER_ID"
	SeriesColName = "SER_NAME"
)

var seriesColumns = []Column{
	{Name: SeriesColID, Type: TypeInteger, PrimaryKey: true, Version: 3},
	{Name: SeriesColName, Type: TypeText, Mandatory: true, Unique: true, Version: 3},
}

// Series groups numbered books.
type Series struct {
	ID   *int64
	Name *string
}

func (s *Series) Table() TableDef { return TableDef{Name: SeriesTable, Version: 3} }
func (s *Series) Columns() []Column { return seriesColumns }
func (s *Series) PrimaryKey() *int64 { return s.ID }
func (s *Series) SetPrimaryKey(id int64) { s.ID = &id }
func (s *Series) Values() []any { return []any{Val(s.ID), Val(s.Name)} }

func (s *Series) ScanTarget(column string) any {
	switch column {
	case SeriesColID:
		return &s.ID
	case SeriesColName:
		return &s.Name
	}
	return nil
}
