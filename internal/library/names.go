package library

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// resolveNamed returns the id of the row matching criteria, inserting m when
// there is none. m's primary key is set to the id either way.
func resolveNamed[T any, PT sqlite.ModelOf[T]](ctx context.Context, h sqlite.Handle, b *sqlite.Broker[T, PT], m PT, criteria PT) (int64, error) {
	existing, ok, err := b.GetByCriteria(ctx, h, criteria)
	if err != nil {
		return 0, err
	}
	if ok {
		id := *existing.PrimaryKey()
		m.SetPrimaryKey(id)
		return id, nil
	}
	return b.Insert(ctx, h, m)
}

func resolvePublisher(ctx context.Context, h sqlite.Handle, b *sqlite.Broker[types.Publisher, *types.Publisher], p *types.Publisher) (*int64, error) {
	if p == nil || trimmed(p.Name) == nil {
		return nil, nil
	}
	p.Name = trimmed(p.Name)
	id, err := resolveNamed(ctx, h, b, &types.Publisher{Name: p.Name}, &types.Publisher{Name: p.Name})
	if err != nil {
		return nil, err
	}
	p.ID = &id
	return &id, nil
}

func resolveSeries(ctx context.Context, h sqlite.Handle, b *sqlite.Broker[types.Series, *types.Series], sr *types.Series) (*int64, error) {
	if sr == nil || trimmed(sr.Name) == nil {
		return nil, nil
	}
	sr.Name = trimmed(sr.Name)
	id, err := resolveNamed(ctx, h, b, &types.Series{Name: sr.Name}, &types.Series{Name: sr.Name})
	if err != nil {
		return nil, err
	}
	sr.ID = &id
	return &id, nil
}

func resolveLocation(ctx context.Context, h sqlite.Handle, b *sqlite.Broker[types.BookLocation, *types.BookLocation], l *types.BookLocation) (*int64, error) {
	if l == nil || trimmed(l.Name) == nil {
		return nil, nil
	}
	l.Name = trimmed(l.Name)
	id, err := resolveNamed(ctx, h, b, &types.BookLocation{Name: l.Name}, &types.BookLocation{Name: l.Name})
	if err != nil {
		return nil, err
	}
	l.ID = &id
	return &id, nil
}

// orphanDeletes remove rows that no book references.
var orphanDeletes = []struct {
	table string
	query string
}{
	{types.AuthorTable, fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (SELECT %s FROM %s)",
		types.AuthorTable, types.AuthorColID, types.BookAuthorColAuthorID, types.BookAuthorTable)},
	{types.CategoryTable, fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (SELECT %s FROM %s)",
		types.CategoryTable, types.CategoryColID, types.BookCategoryColCategoryID, types.BookCategoryTable)},
	{types.PublisherTable, fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (SELECT %s FROM %s WHERE %s IS NOT NULL)",
		types.PublisherTable, types.PublisherColID, types.BookColPublisherID, types.BookTable, types.BookColPublisherID)},
	{types.SeriesTable, fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (SELECT %s FROM %s WHERE %s IS NOT NULL)",
		types.SeriesTable, types.SeriesColID, types.BookColSeriesID, types.BookTable, types.BookColSeriesID)},
	{types.BookLocationTable, fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (SELECT %s FROM %s WHERE %s IS NOT NULL)",
		types.BookLocationTable, types.BookLocationColID, types.BookColLocationID, types.BookTable, types.BookColLocationID)},
}

func deleteOrphans(ctx context.Context, h sqlite.Handle) error {
	for _, d := range orphanDeletes {
		if _, err := h.ExecContext(ctx, d.query); err != nil {
			return fmt.Errorf("removing unused %s rows: %w", d.table, err)
		}
	}
	return nil
}
