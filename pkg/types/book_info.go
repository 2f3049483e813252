package types

// BookInfo is a book together with everything it references. Search results
// and locally entered books share this shape; it is what the library service
// saves and returns.
type BookInfo struct {
	Book
	Authors    []*Author
	Categories []*Category
	Publisher  *Publisher
	Series     *Series
	Location   *BookLocation
}

// NewBookInfo wraps b with empty relations.
func NewBookInfo(b *Book) *BookInfo {
	info := &BookInfo{}
	if b != nil {
		info.Book = *b
	}
	return info
}

// AuthorNames returns the non-empty author names in order.
func (bi *BookInfo) AuthorNames() []string {
	names := make([]string, 0, len(bi.Authors))
	for _, a := range bi.Authors {
		if a != nil && a.Name != nil && *a.Name != "" {
			names = append(names, *a.Name)
		}
	}
	return names
}
