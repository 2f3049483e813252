package types

import "time"

// Book columns.
const (
	BookColID             = "BOO_ID"
	BookColTitle          = "BOO_TITLE"
	BookColSubtitle       = "BOO_SUBTITLE"
	BookColLanguage       = "BOO_LANGUAGE"
	BookColISBN10         = "BOO_ISBN_10"
	BookColISBN13         = "BOO_ISBN_13"
	BookColPageCount      = "BOO_PAGE_COUNT"
	BookColPublisherID    = "PUB_ID"
	BookColPublishedDate  = "BOO_PUBLISHED_DATE"
	BookColDescription    = "BOO_DESCRIPTION"
	BookColThumbnail      = "BOO_THUMBNAIL"
	BookColSmallThumbnail = "BOO_SMALL_THUMBNAIL"
	BookColIsRead         = "BOO_IS_READ"
	BookColIsFavourite    = "BOO_IS_FAVOURITE"
	BookColSeriesID       = "SER_ID"
	BookColNumber         = "BOO_NUMBER"
	BookColLocationID     = "BKL_ID"
	BookColLoanedTo       = "BOO_LOANED_TO"
	BookColLoanDate       = "BOO_LOAN_DATE"
)

var bookColumns = []Column{
	{Name: BookColID, Type: TypeInteger, PrimaryKey: true, Version: 1},
	{Name: BookColTitle, Type: TypeText, Mandatory: true, Version: 1},
	{Name: BookColSubtitle, Type: TypeText, Version: 1},
	{Name: BookColLanguage, Type: TypeText, Version: 1},
	{Name: BookColISBN10, Type: TypeText, Version: 1},
	{Name: BookColISBN13, Type: TypeText, Version: 1},
	{Name: BookColPageCount, Type: TypeInteger, Version: 1},
	{Name: BookColPublisherID, Type: TypeInteger, Version: 1},
	{Name: BookColPublishedDate, Type: TypeText, Version: 1},
	{Name: BookColDescription, Type: TypeText, Version: 1},
	{Name: BookColThumbnail, Type: TypeBlob, Version: 1},
	{Name: BookColSmallThumbnail, Type: TypeBlob, Version: 1},
	{Name: BookColIsRead, Type: TypeInteger, Mandatory: true, Default: "0", Version: 1},
	{Name: BookColIsFavourite, Type: TypeInteger, Mandatory: true, Default: "0", Version: 2},
	{Name: BookColSeriesID, Type: TypeInteger, Version: 3},
	{Name: BookColNumber, Type: TypeInteger, Version: 3},
	{Name: BookColLocationID, Type: TypeInteger, Version: 4},
	{Name: BookColLoanedTo, Type: TypeText, Version: 4},
	{Name: BookColLoanDate, Type: TypeInteger, Version: 4},
}

// Book is a catalogued book. Foreign keys point at Publisher, Series and
// BookLocation rows; authors and categories are linked through BookAuthor
// and BookCategory.
type Book struct {
	ID             *int64
	Title          *string
	Subtitle       *string
	Language       *string
	ISBN10         *string
	ISBN13         *string
	PageCount      *int64
	PublisherID    *int64
	PublishedDate  *string
	Description    *string
	Thumbnail      []byte
	SmallThumbnail []byte
	IsRead         *bool
	IsFavourite    *bool
	SeriesID       *int64
	Number         *int64
	LocationID     *int64
	LoanedTo       *string
	LoanDate       *time.Time
}

// NewBook returns a book with the given title and the read and favourite
// flags cleared.
func NewBook(title string) *Book {
	return &Book{
		Title:       Ptr(title),
		IsRead:      Ptr(false),
		IsFavourite: Ptr(false),
	}
}

func (b *Book) Table() TableDef { return TableDef{Name: BookTable, Version: 1} }
func (b *Book) Columns() []Column { return bookColumns }
func (b *Book) PrimaryKey() *int64 { return b.ID }
func (b *Book) SetPrimaryKey(id int64) { b.ID = &id }

func (b *Book) Values() []any {
	return []any{
		Val(b.ID), Val(b.Title), Val(b.Subtitle), Val(b.Language),
		Val(b.ISBN10), Val(b.ISBN13), Val(b.PageCount), Val(b.PublisherID),
		Val(b.PublishedDate), Val(b.Description), blobVal(b.Thumbnail), blobVal(b.SmallThumbnail),
		Val(b.IsRead), Val(b.IsFavourite), Val(b.SeriesID), Val(b.Number),
		Val(b.LocationID), Val(b.LoanedTo), TimeVal(b.LoanDate),
	}
}

func (b *Book) ScanTarget(column string) any {
	switch column {
	case BookColID:
		return &b.ID
	case BookColTitle:
		return &b.Title
	case BookColSubtitle:
		return &b.Subtitle
	case BookColLanguage:
		return &b.Language
	case BookColISBN10:
		return &b.ISBN10
	case BookColISBN13:
		return &b.ISBN13
	case BookColPageCount:
		return &b.PageCount
	case BookColPublisherID:
		return &b.PublisherID
	case BookColPublishedDate:
		return &b.PublishedDate
	case BookColDescription:
		return &b.Description
	case BookColThumbnail:
		return &b.Thumbnail
	case BookColSmallThumbnail:
		return &b.SmallThumbnail
	case BookColIsRead:
		return &b.IsRead
	case BookColIsFavourite:
		return &b.IsFavourite
	case BookColSeriesID:
		return &b.SeriesID
	case BookColNumber:
		return &b.Number
	case BookColLocationID:
		return &b.LocationID
	case BookColLoanedTo:
		return &b.LoanedTo
	case BookColLoanDate:
		return TimeTarget(&b.LoanDate)
	}
	return nil
}

// IsLoaned reports whether the book is currently lent to someone.
func (b *Book) IsLoaned() bool {
	return b.LoanedTo != nil && *b.LoanedTo != ""
}

// blobVal binds a nil slice as NULL.
func blobVal(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}
