package library

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Service runs catalogue operations against one store. Multi-step writes
// run in a single transaction.
type Service struct {
	store  *sqlite.Store
	logger *slog.Logger
	now    func() time.Time

	books          *sqlite.Broker[types.Book, *types.Book]
	authors        *sqlite.Broker[types.Author, *types.Author]
	bookAuthors    *sqlite.Broker[types.BookAuthor, *types.BookAuthor]
	categories     *sqlite.Broker[types.Category, *types.Category]
	bookCategories *sqlite.Broker[types.BookCategory, *types.BookCategory]
	publishers     *sqlite.Broker[types.Publisher, *types.Publisher]
	series         *sqlite.Broker[types.Series, *types.Series]
	locations      *sqlite.Broker[types.BookLocation, *types.BookLocation]
	scanned        *sqlite.Broker[types.ScannedIsbn, *types.ScannedIsbn]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for scan dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service over store and makes sure the search index exists.
// The store's registry must contain every entry from Models.
func New(ctx context.Context, store *sqlite.Store, opts ...Option) (*Service, error) {
	s := &Service{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	reg := store.Registry()
	var err error
	if s.books, err = sqlite.BrokerFor[types.Book](reg); err != nil {
		return nil, err
	}
	if s.authors, err = sqlite.BrokerFor[types.Author](reg); err != nil {
		return nil, err
	}
	if s.bookAuthors, err = sqlite.BrokerFor[types.BookAuthor](reg); err != nil {
		return nil, err
	}
	if s.categories, err = sqlite.BrokerFor[types.Category](reg); err != nil {
		return nil, err
	}
	if s.bookCategories, err = sqlite.BrokerFor[types.BookCategory](reg); err != nil {
		return nil, err
	}
	if s.publishers, err = sqlite.BrokerFor[types.Publisher](reg); err != nil {
		return nil, err
	}
	if s.series, err = sqlite.BrokerFor[types.Series](reg); err != nil {
		return nil, err
	}
	if s.locations, err = sqlite.BrokerFor[types.BookLocation](reg); err != nil {
		return nil, err
	}
	if s.scanned, err = sqlite.BrokerFor[types.ScannedIsbn](reg); err != nil {
		return nil, err
	}
	if err := s.ensureSearchIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Store returns the underlying store.
func (s *Service) Store() *sqlite.Store { return s.store }

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// Counts returns the number of rows in every catalogue table.
func (s *Service) Counts(ctx context.Context) ([]TableCount, error) {
	h := s.store.DB()
	var counts []TableCount
	add := func(table string, n int64, err error) error {
		if err != nil {
			return fmt.Errorf("counting %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
		return nil
	}

	n, err := s.books.Count(ctx, h, nil)
	if err := add(types.BookTable, n, err); err != nil {
		return nil, err
	}
	n, err = s.authors.Count(ctx, h, nil)
	if err := add(types.AuthorTable, n, err); err != nil {
		return nil, err
	}
	n, err = s.categories.Count(ctx, h, nil)
	if err := add(types.CategoryTable, n, err); err != nil {
		return nil, err
	}
	n, err = s.publishers.Count(ctx, h, nil)
	if err := add(types.PublisherTable, n, err); err != nil {
		return nil, err
	}
	n, err = s.series.Count(ctx, h, nil)
	if err := add(types.SeriesTable, n, err); err != nil {
		return nil, err
	}
	n, err = s.locations.Count(ctx, h, nil)
	if err := add(types.BookLocationTable, n, err); err != nil {
		return nil, err
	}
	n, err = s.scanned.Count(ctx, h, nil)
	if err := add(types.ScannedIsbnTable, n, err); err != nil {
		return nil, err
	}
	return counts, nil
}
