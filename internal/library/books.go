package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/shelf/internal/isbn"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// listColumns are the book columns read for list views. Descriptions and
// thumbnails stay unread.
var listColumns = []string{
	types.BookColID, types.BookColTitle, types.BookColSubtitle, types.BookColLanguage,
	types.BookColISBN10, types.BookColISBN13, types.BookColPublisherID,
	types.BookColIsRead, types.BookColIsFavourite, types.BookColSeriesID, types.BookColNumber,
	types.BookColLocationID, types.BookColLoanedTo, types.BookColLoanDate,
}

// SaveBookInfo inserts or updates a book together with its relations and
// returns the book id. Publisher, series, location, authors and categories
// are matched by name and reused when they exist. Relations no book uses any
// more are removed. Updating a book that no longer exists returns
// types.ErrNotFound. When the save fails the ids in info are put back as
// they were.
func (s *Service) SaveBookInfo(ctx context.Context, info *types.BookInfo) (int64, error) {
	var id int64
	before := idsOf(info)
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveBookInfo(ctx, tx, info)
		return err
	})
	if err != nil {
		before.restore(info)
		return 0, err
	}
	s.logger.Debug("book saved", "id", id, "title", *info.Title)
	return id, nil
}

func (s *Service) saveBookInfo(ctx context.Context, tx *sql.Tx, info *types.BookInfo) (int64, error) {
	title := trimmed(info.Title)
	if title == nil {
		return 0, fmt.Errorf("saving book: empty title: %w", types.ErrInvalidName)
	}
	info.Title = title

	var err error
	if info.ISBN10, err = checkISBN(info.ISBN10, isbn.IsValid10); err != nil {
		return 0, err
	}
	if info.ISBN13, err = checkISBN(info.ISBN13, isbn.IsValid13); err != nil {
		return 0, err
	}
	if info.ID != nil {
		_, ok, err := s.books.Get(ctx, tx, *info.ID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("saving book %d: %w", *info.ID, types.ErrNotFound)
		}
	}

	if info.PublisherID, err = resolvePublisher(ctx, tx, s.publishers, info.Publisher); err != nil {
		return 0, err
	}
	if info.SeriesID, err = resolveSeries(ctx, tx, s.series, info.Series); err != nil {
		return 0, err
	}
	if info.LocationID, err = resolveLocation(ctx, tx, s.locations, info.Location); err != nil {
		return 0, err
	}

	id, err := s.books.Save(ctx, tx, &info.Book)
	if err != nil {
		return 0, err
	}
	if err := s.linkAuthors(ctx, tx, id, info.Authors); err != nil {
		return 0, err
	}
	if err := s.linkCategories(ctx, tx, id, info.Categories); err != nil {
		return 0, err
	}
	if err := deleteOrphans(ctx, tx); err != nil {
		return 0, err
	}
	if err := indexBook(ctx, tx, id, info); err != nil {
		return 0, err
	}
	return id, nil
}

// bookInfoIDs are the primary keys a save assigns inside a BookInfo.
type bookInfoIDs struct {
	book        *int64
	publisherID *int64
	seriesID    *int64
	locationID  *int64
	publisher   *int64
	series      *int64
	location    *int64
	authors     []*int64
	categories  []*int64
}

func idsOf(info *types.BookInfo) bookInfoIDs {
	ids := bookInfoIDs{
		book:        info.ID,
		publisherID: info.PublisherID,
		seriesID:    info.SeriesID,
		locationID:  info.LocationID,
	}
	if info.Publisher != nil {
		ids.publisher = info.Publisher.ID
	}
	if info.Series != nil {
		ids.series = info.Series.ID
	}
	if info.Location != nil {
		ids.location = info.Location.ID
	}
	for _, a := range info.Authors {
		var id *int64
		if a != nil {
			id = a.ID
		}
		ids.authors = append(ids.authors, id)
	}
	for _, c := range info.Categories {
		var id *int64
		if c != nil {
			id = c.ID
		}
		ids.categories = append(ids.categories, id)
	}
	return ids
}

// restore puts the ids back into info, which must hold the same relations
// it had when the ids were taken.
func (ids bookInfoIDs) restore(info *types.BookInfo) {
	info.ID = ids.book
	info.PublisherID = ids.publisherID
	info.SeriesID = ids.seriesID
	info.LocationID = ids.locationID
	if info.Publisher != nil {
		info.Publisher.ID = ids.publisher
	}
	if info.Series != nil {
		info.Series.ID = ids.series
	}
	if info.Location != nil {
		info.Location.ID = ids.location
	}
	for i, a := range info.Authors {
		if a != nil && i < len(ids.authors) {
			a.ID = ids.authors[i]
		}
	}
	for i, c := range info.Categories {
		if c != nil && i < len(ids.categories) {
			c.ID = ids.categories[i]
		}
	}
}

// linkAuthors replaces the author links of a book.
func (s *Service) linkAuthors(ctx context.Context, tx *sql.Tx, bookID int64, authors []*types.Author) error {
	links, err := s.bookAuthors.GetAllByCriteria(ctx, tx, &types.BookAuthor{BookID: &bookID})
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := s.bookAuthors.Delete(ctx, tx, *l.ID); err != nil {
			return err
		}
	}

	seen := make(map[int64]bool)
	for _, a := range authors {
		if a == nil || trimmed(a.Name) == nil {
			continue
		}
		a.Name = trimmed(a.Name)
		id, err := resolveNamed(ctx, tx, s.authors, a, &types.Author{Name: a.Name})
		if err != nil {
			return err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.bookAuthors.Insert(ctx, tx, &types.BookAuthor{BookID: &bookID, AuthorID: &id}); err != nil {
			return err
		}
	}
	return nil
}

// linkCategories replaces the category links of a book.
func (s *Service) linkCategories(ctx context.Context, tx *sql.Tx, bookID int64, categories []*types.Category) error {
	links, err := s.bookCategories.GetAllByCriteria(ctx, tx, &types.BookCategory{BookID: &bookID})
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := s.bookCategories.Delete(ctx, tx, *l.ID); err != nil {
			return err
		}
	}

	seen := make(map[int64]bool)
	for _, c := range categories {
		if c == nil || trimmed(c.Name) == nil {
			continue
		}
		c.Name = trimmed(c.Name)
		id, err := resolveNamed(ctx, tx, s.categories, c, &types.Category{Name: c.Name})
		if err != nil {
			return err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.bookCategories.Insert(ctx, tx, &types.BookCategory{BookID: &bookID, CategoryID: &id}); err != nil {
			return err
		}
	}
	return nil
}

// GetBookInfo returns a book with all of its relations. ok is false when no
// book has the id.
func (s *Service) GetBookInfo(ctx context.Context, id int64) (*types.BookInfo, bool, error) {
	return s.getBookInfo(ctx, s.store.DB(), id)
}

func (s *Service) getBookInfo(ctx context.Context, h sqlite.Handle, id int64) (*types.BookInfo, bool, error) {
	book, ok, err := s.books.Get(ctx, h, id)
	if err != nil || !ok {
		return nil, false, err
	}
	info := types.NewBookInfo(book)

	authorLinks, err := s.bookAuthors.GetAllByCriteria(ctx, h, &types.BookAuthor{BookID: &id})
	if err != nil {
		return nil, false, err
	}
	authorIDs := make([]int64, 0, len(authorLinks))
	for _, l := range authorLinks {
		authorIDs = append(authorIDs, *l.AuthorID)
	}
	authors, err := s.authors.GetAllWhereIn(ctx, h, types.AuthorColID, sqlite.Int64s(authorIDs))
	if err != nil {
		return nil, false, err
	}
	info.Authors = inLinkOrder(authorIDs, authors)

	categoryLinks, err := s.bookCategories.GetAllByCriteria(ctx, h, &types.BookCategory{BookID: &id})
	if err != nil {
		return nil, false, err
	}
	categoryIDs := make([]int64, 0, len(categoryLinks))
	for _, l := range categoryLinks {
		categoryIDs = append(categoryIDs, *l.CategoryID)
	}
	categories, err := s.categories.GetAllWhereIn(ctx, h, types.CategoryColID, sqlite.Int64s(categoryIDs))
	if err != nil {
		return nil, false, err
	}
	info.Categories = inLinkOrder(categoryIDs, categories)

	if book.PublisherID != nil {
		if info.Publisher, _, err = s.publishers.Get(ctx, h, *book.PublisherID); err != nil {
			return nil, false, err
		}
	}
	if book.SeriesID != nil {
		if info.Series, _, err = s.series.Get(ctx, h, *book.SeriesID); err != nil {
			return nil, false, err
		}
	}
	if book.LocationID != nil {
		if info.Location, _, err = s.locations.Get(ctx, h, *book.LocationID); err != nil {
			return nil, false, err
		}
	}
	return info, true, nil
}

// ListBookInfo returns every book ordered by title, with its authors,
// series and location filled in. Descriptions, thumbnails and categories are
// not loaded.
func (s *Service) ListBookInfo(ctx context.Context) ([]*types.BookInfo, error) {
	h := s.store.DB()
	books, err := s.books.GetAll(ctx, h, sqlite.Select(listColumns...), sqlite.OrderBy(types.BookColTitle))
	if err != nil {
		return nil, err
	}
	return s.listInfos(ctx, h, books)
}

// listInfos wraps books, keeping their order, and fills in authors, series
// and location.
func (s *Service) listInfos(ctx context.Context, h sqlite.Handle, books []*types.Book) ([]*types.BookInfo, error) {
	if len(books) == 0 {
		return []*types.BookInfo{}, nil
	}

	bookIDs := make([]int64, len(books))
	for i, b := range books {
		bookIDs[i] = *b.ID
	}
	links, err := s.bookAuthors.GetAllWhereIn(ctx, h, types.BookAuthorColBookID, sqlite.Int64s(bookIDs))
	if err != nil {
		return nil, err
	}
	var authorIDs []int64
	linksByBook := make(map[int64][]int64)
	for _, l := range links {
		linksByBook[*l.BookID] = append(linksByBook[*l.BookID], *l.AuthorID)
		authorIDs = append(authorIDs, *l.AuthorID)
	}
	authors, err := s.authors.GetAllWhereIn(ctx, h, types.AuthorColID, sqlite.Int64s(authorIDs))
	if err != nil {
		return nil, err
	}
	series, err := s.series.GetAll(ctx, h)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.GetAll(ctx, h)
	if err != nil {
		return nil, err
	}
	seriesByID := byID(series)
	locationsByID := byID(locations)

	infos := make([]*types.BookInfo, len(books))
	for i, b := range books {
		info := types.NewBookInfo(b)
		info.Authors = inLinkOrder(linksByBook[*b.ID], authors)
		if b.SeriesID != nil {
			info.Series = seriesByID[*b.SeriesID]
		}
		if b.LocationID != nil {
			info.Location = locationsByID[*b.LocationID]
		}
		infos[i] = info
	}
	return infos, nil
}

// DeleteBook removes a book, its links and any author, category, publisher,
// series or location left without books. Deleting a missing book is not an
// error.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.linkAuthors(ctx, tx, id, nil); err != nil {
			return err
		}
		if err := s.linkCategories(ctx, tx, id, nil); err != nil {
			return err
		}
		if err := s.books.Delete(ctx, tx, id); err != nil {
			return err
		}
		if err := unindexBook(ctx, tx, id); err != nil {
			return err
		}
		return deleteOrphans(ctx, tx)
	})
}

// ToggleRead flips the read flag and returns the new value.
func (s *Service) ToggleRead(ctx context.Context, id int64) (bool, error) {
	var read bool
	err := s.updateBook(ctx, id, func(b *types.Book) {
		read = b.IsRead == nil || !*b.IsRead
		b.IsRead = &read
	})
	return read, err
}

// ToggleFavourite flips the favourite flag and returns the new value.
func (s *Service) ToggleFavourite(ctx context.Context, id int64) (bool, error) {
	var fav bool
	err := s.updateBook(ctx, id, func(b *types.Book) {
		fav = b.IsFavourite == nil || !*b.IsFavourite
		b.IsFavourite = &fav
	})
	return fav, err
}

// LoanBook records that the book was lent to someone on the given date.
func (s *Service) LoanBook(ctx context.Context, id int64, to string, when time.Time) error {
	name := trimmed(&to)
	if name == nil {
		return fmt.Errorf("loaning book %d: empty borrower: %w", id, types.ErrInvalidName)
	}
	return s.updateBook(ctx, id, func(b *types.Book) {
		b.LoanedTo = name
		b.LoanDate = &when
	})
}

// ReturnBook clears the loan of a book.
func (s *Service) ReturnBook(ctx context.Context, id int64) error {
	return s.updateBook(ctx, id, func(b *types.Book) {
		b.LoanedTo = nil
		b.LoanDate = nil
	})
}

// updateBook reads, changes and writes back one book in a transaction.
func (s *Service) updateBook(ctx context.Context, id int64, change func(*types.Book)) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		b, ok, err := s.books.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("book %d: %w", id, types.ErrNotFound)
		}
		change(b)
		return s.books.Update(ctx, tx, b)
	})
}

func checkISBN(code *string, valid func(string) bool) (*string, error) {
	if trimmed(code) == nil {
		return nil, nil
	}
	n := isbn.Normalize(*code)
	if !valid(n) {
		return nil, fmt.Errorf("saving book: %w: %q", types.ErrInvalidISBN, *code)
	}
	return &n, nil
}

// trimmed returns p with surrounding space removed, or nil when nothing is
// left.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func byID[PT types.Model](list []PT) map[int64]PT {
	m := make(map[int64]PT, len(list))
	for _, item := range list {
		m[*item.PrimaryKey()] = item
	}
	return m
}

// inLinkOrder returns the rows of list whose ids appear in ids, in ids order.
func inLinkOrder[PT types.Model](ids []int64, list []PT) []PT {
	m := byID(list)
	out := make([]PT, 0, len(ids))
	for _, id := range ids {
		if item, ok := m[id]; ok {
			out = append(out, item)
		}
	}
	return out
}
