package types

// Table names of the library catalogue.
const (
	BookTable         = "BOOK"
	AuthorTable       = "AUTHOR"
	BookAuthorTable   = "BOOK_AUTHOR"
	PublisherTable    = "PUBLISHER"
	CategoryTable     = "CATEGORY"
	BookCategoryTable = "BOOK_CATEGORY"
	SeriesTable       = "SERIES"
	BookLocationTable = "BOOK_LOCATION"
	ScannedIsbnTable  = "SCANNED_ISBN"
)

// StandardTableNames lists all catalogue tables in dependency order.
var StandardTableNames = []string{
	PublisherTable,
	SeriesTable,
	BookLocationTable,
	BookTable,
	AuthorTable,
	BookAuthorTable,
	CategoryTable,
	BookCategoryTable,
	ScannedIsbnTable,
}
