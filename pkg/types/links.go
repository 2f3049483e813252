package types

// BookAuthor columns.
const (
	BookAuthorColID       = "BKA_ID"
	BookAuthorColBookID   = "BOO_ID"
	BookAuthorColAuthorID = "AUT_ID"
)

var bookAuthorColumns = []Column{
	{Name: BookAuthorColID, Type: TypeInteger, PrimaryKey: true, Version: 1},
	{Name: BookAuthorColBookID, Type: TypeInteger, Mandatory: true, Version: 1},
	{Name: BookAuthorColAuthorID, Type: TypeInteger, Mandatory: true, Version: 1},
}

// BookAuthor links a book to one of its authors.
type BookAuthor struct {
	ID       *int64
	BookID   *int64
	AuthorID *int64
}

func (ba *BookAuthor) Table() TableDef { return TableDef{Name: BookAuthorTable, Version: 1} }
func (ba *BookAuthor) Columns() []Column { return bookAuthorColumns }
func (ba *BookAuthor) PrimaryKey() *int64 { return ba.ID }
func (ba *BookAuthor) SetPrimaryKey(id int64) { ba.ID = &id }

func (ba *BookAuthor) Values() []any {
	return []any{Val(ba.ID), Val(ba.BookID), Val(ba.AuthorID)}
}

func (ba *BookAuthor) ScanTarget(column string) any {
	switch column {
	case BookAuthorColID:
		return &ba.ID
	case BookAuthorColBookID:
		return &ba.BookID
	case BookAuthorColAuthorID:
		return &ba.AuthorID
	}
	return nil
}

// BookCategory columns.
const (
	BookCategoryColID         = "BKC_ID"
	BookCategoryColBookID     = "BOO_ID"
	BookCategoryColCategoryID = "CAT_ID"
)

var bookCategoryColumns = []Column{
	{Name: BookCategoryColID, Type: TypeInteger, PrimaryKey: true, Version: 2},
	{Name: BookCategoryColBookID, Type: TypeInteger, Mandatory: true, Version: 2},
	{Name: BookCategoryColCategoryID, Type: TypeInteger, Mandatory: true, Version: 2},
}

// BookCategory links a book to a category.
type BookCategory struct {
	ID         *int64
	BookID     *int64
	CategoryID *int64
}

func (bc *BookCategory) Table() TableDef { return TableDef{Name: BookCategoryTable, Version: 2} }
func (bc *BookCategory) Columns() []Column { return bookCategoryColumns }
func (bc *BookCategory) PrimaryKey() *int64 { return bc.ID }
func (bc *BookCategory) SetPrimaryKey(id int64) { bc.ID = &id }

func (bc *BookCategory) Values() []any {
	return []any{Val(bc.ID), Val(bc.BookID), Val(bc.CategoryID)}
}

func (bc *BookCategory) ScanTarget(column string) any {
	switch column {
	case BookCategoryColID:
		return &bc.ID
	case BookCategoryColBookID:
		return &bc.BookID
	case BookCategoryColCategoryID:
		return &bc.CategoryID
	}
	return nil
}
