package types

// Publisher columns.
const (
	PublisherColID   = "PUB_ID"
	PublisherColName = "PUB_NAME"
)

var publisherColumns = []Column{
	{Name: PublisherColID, Type: TypeInteger, PrimaryKey: true, Version: 1},
	{Name: PublisherColName, Type: TypeText, Mandatory: true, Unique: true, Version: 1},
}

// Publisher is a publishing house.
type Publisher struct {
	ID   *int64
	Name *string
}

func (p *Publisher) Table() TableDef { return TableDef{Name: PublisherTable, Version: 1} }
func (p *Publisher) Columns() []Column { return publisherColumns }
func (p *Publisher) PrimaryKey() *int64 { return p.ID }
func (p *Publisher) SetPrimaryKey(id int64) { p.ID = &id }
func (p *Publisher) Values() []any { return []any{Val(p.ID), Val(p.Name)} }

func (p *Publisher) ScanTarget(column string) any {
	switch column {
	case PublisherColID:
		return &p.ID
	case PublisherColName:
		return &p.Name
	}
	return nil
}
