// Package library implements the book catalogue operations on top of the
// SQLite brokers: saving and deleting books with their authors, categories,
// publisher, series and location; loans and flags; the scanned ISBN queue;
// and grouped listings.
package library

import (
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Models returns the registry entries for every catalogue table.
func Models() []sqlite.Entry {
	return []sqlite.Entry{
		sqlite.Register[types.Publisher](),
		sqlite.Register[types.Author](),
		sqlite.Register[types.Book](),
		sqlite.Register[types.BookAuthor](),
		sqlite.Register[types.Category](),
		sqlite.Register[types.BookCategory](),
		sqlite.Register[types.Series](),
		sqlite.Register[types.BookLocation](),
		sqlite.Register[types.ScannedIsbn](),
	}
}

// NewRegistry builds the registry of every catalogue table.
func NewRegistry() (*sqlite.Registry, error) {
	return sqlite.NewRegistry(Models()...)
}
