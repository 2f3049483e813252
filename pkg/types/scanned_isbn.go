package types

import "time"

// ScannedIsbn columns.
const (
	ScannedIsbnColID               = "SCI_ID"
	ScannedIsbnColISBN             = "SCI_ISBN"
	ScannedIsbnColScanDate         = "SCI_SCAN_DATE"
	ScannedIsbnColLookedUp         = "SCI_LOOKED_UP"
	ScannedIsbnColSearchSuccessful = "SCI_SEARCH_SUCCESSFUL"
)

var scannedIsbnColumns = []Column{
	{Name: ScannedIsbnColID, Type: TypeInteger, PrimaryKey: true, Version: 5},
	{Name: ScannedIsbnColISBN, Type: TypeText, Mandatory: true, Unique: true, Version: 5},
	{Name: ScannedIsbnColScanDate, Type: TypeInteger, Version: 5},
	{Name: ScannedIsbnColLookedUp, Type: TypeInteger, Mandatory: true, Default: "0", Version: 5},
	{Name: ScannedIsbnColSearchSuccessful, Type: TypeInteger, Version: 5},
}

// ScannedIsbn is an ISBN queued for a bulk lookup.
type ScannedIsbn struct {
	ID               *int64
	ISBN             *string
	ScanDate         *time.Time
	LookedUp         *bool
	SearchSuccessful *bool
}

func (s *ScannedIsbn) Table() TableDef { return TableDef{Name: ScannedIsbnTable, Version: 5} }
func (s *ScannedIsbn) Columns() []Column { return scannedIsbnColumns }
func (s *ScannedIsbn) PrimaryKey() *int64 { return s.ID }
func (s *ScannedIsbn) SetPrimaryKey(id int64) { s.ID = &id }

func (s *ScannedIsbn) Values() []any {
	return []any{Val(s.ID), Val(s.ISBN), TimeVal(s.ScanDate), Val(s.LookedUp), Val(s.SearchSuccessful)}
}

func (s *ScannedIsbn) ScanTarget(column string) any {
	switch column {
	case ScannedIsbnColID:
		return &s.ID
	case ScannedIsbnColISBN:
		return &s.ISBN
	case ScannedIsbnColScanDate:
		return TimeTarget(&s.ScanDate)
	case ScannedIsbnColLookedUp:
		return &s.LookedUp
	case ScannedIsbnColSearchSuccessful:
		return &s.SearchSuccessful
	}
	return nil
}
