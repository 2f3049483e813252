package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func fullBook(title string) *types.Book {
	b := types.NewBook(title)
	b.Subtitle = types.Ptr("A subtitle")
	b.Language = types.Ptr("en")
	b.ISBN10 = types.Ptr("0306406152")
	b.ISBN13 = types.Ptr("9780306406157")
	b.PageCount = types.Ptr(int64(320))
	b.PublishedDate = types.Ptr("1999-04-01")
	b.Description = types.Ptr("Long description")
	b.Thumbnail = []byte{0x89, 0x50, 0x4e, 0x47}
	b.IsFavourite = types.Ptr(true)
	b.Number = types.Ptr(int64(2))
	b.LoanedTo = types.Ptr("Ana")
	b.LoanDate = types.Ptr(time.UnixMilli(1700000000123))
	return b
}

// --- Insert and Get ---

func TestBroker_InsertThenGetReturnsEqualRow(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	in := fullBook("Dune")
	id, err := books.Insert(ctx, s.DB(), in)
	require.NoError(t, err)
	require.NotNil(t, in.ID)
	assert.Equal(t, id, *in.ID)

	got, ok, err := books.Get(ctx, s.DB(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Subtitle, got.Subtitle)
	assert.Equal(t, in.PageCount, got.PageCount)
	assert.Equal(t, in.Thumbnail, got.Thumbnail)
	assert.Nil(t, got.SmallThumbnail)
	assert.Equal(t, in.IsRead, got.IsRead)
	assert.Equal(t, in.IsFavourite, got.IsFavourite)
	assert.Nil(t, got.PublisherID)
	assert.Equal(t, in.LoanDate.UnixMilli(), got.LoanDate.UnixMilli())
}

func TestBroker_InsertAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	id, err := books.Insert(ctx, s.DB(), &types.Book{Title: types.Ptr("Bare")})
	require.NoError(t, err)

	got, ok, err := books.Get(ctx, s.DB(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Ptr(false), got.IsRead)
	assert.Equal(t, types.Ptr(false), got.IsFavourite)
}

func TestBroker_GetMissingIsNotAnError(t *testing.T) {
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	got, ok, err := books.Get(context.Background(), s.DB(), 4242)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestBroker_MandatoryNullIsConstraintError(t *testing.T) {
	s := openMemoryStore(t)
	publishers := MustBrokerFor[types.Publisher](s.Registry())

	p := &types.Publisher{}
	_, err := publishers.Save(context.Background(), s.DB(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConstraint)
	assert.Nil(t, p.ID)

	n, err := publishers.Count(context.Background(), s.DB(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBroker_UniqueViolationIsConstraintError(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	authors := MustBrokerFor[types.Author](s.Registry())

	_, err := authors.Insert(ctx, s.DB(), &types.Author{Name: types.Ptr("Le Guin")})
	require.NoError(t, err)
	_, err = authors.Insert(ctx, s.DB(), &types.Author{Name: types.Ptr("Le Guin")})
	assert.ErrorIs(t, err, types.ErrConstraint)
}

// --- Update and Save ---

func TestBroker_UpdateReflectsChanges(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	b := fullBook("Original")
	id, err := books.Insert(ctx, s.DB(), b)
	require.NoError(t, err)

	b.Title = types.Ptr("Renamed")
	b.IsRead = types.Ptr(true)
	require.NoError(t, books.Update(ctx, s.DB(), b))

	got, ok, err := books.Get(ctx, s.DB(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Renamed", *got.Title)
	assert.True(t, *got.IsRead)
	assert.Equal(t, b.Subtitle, got.Subtitle)
	assert.Equal(t, b.Thumbnail, got.Thumbnail)
}

func TestBroker_UpdateWithoutPrimaryKey(t *testing.T) {
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	err := books.Update(context.Background(), s.DB(), types.NewBook("Never saved"))
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)
}

func TestBroker_SaveInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	series := MustBrokerFor[types.Series](s.Registry())

	sr := &types.Series{Name: types.Ptr("Earthsea")}
	id, err := series.Save(ctx, s.DB(), sr)
	require.NoError(t, err)

	sr.Name = types.Ptr("The Earthsea Cycle")
	id2, err := series.Save(ctx, s.DB(), sr)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	n, err := series.Count(ctx, s.DB(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// --- Delete ---

func TestBroker_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	id, err := books.Insert(ctx, s.DB(), types.NewBook("Gone"))
	require.NoError(t, err)

	require.NoError(t, books.Delete(ctx, s.DB(), id))
	_, ok, err := books.Get(ctx, s.DB(), id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, books.Delete(ctx, s.DB(), id))
}

func TestBroker_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	isbns := MustBrokerFor[types.ScannedIsbn](s.Registry())

	for _, code := range []string{"9780306406157", "9780140449136"} {
		_, err := isbns.Insert(ctx, s.DB(), &types.ScannedIsbn{ISBN: types.Ptr(code)})
		require.NoError(t, err)
	}
	require.NoError(t, isbns.DeleteAll(ctx, s.DB()))

	n, err := isbns.Count(ctx, s.DB(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- GetAll ---

func TestBroker_GetAllSortsByTitle(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	for _, title := range []string{"Zed", "Apple", "Mango"} {
		_, err := books.Insert(ctx, s.DB(), types.NewBook(title))
		require.NoError(t, err)
	}

	got, err := books.GetAll(ctx, s.DB(), OrderBy(types.BookColTitle))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Apple", "Mango", "Zed"}, titles(got))
}

func TestBroker_GetAllTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	var ids []int64
	for _, title := range []string{"B", "A", "B", "A"} {
		id, err := books.Insert(ctx, s.DB(), types.NewBook(title))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := books.GetAll(ctx, s.DB(), OrderBy(types.BookColTitle))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []int64{ids[1], ids[3], ids[0], ids[2]}, bookIDs(got))
}

func TestBroker_GetAllProjection(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	_, err := books.Insert(ctx, s.DB(), fullBook("Projected"))
	require.NoError(t, err)

	got, err := books.GetAll(ctx, s.DB(), Select(types.BookColID, types.BookColTitle))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].ID)
	assert.Equal(t, "Projected", *got[0].Title)
	assert.Nil(t, got[0].Subtitle)
	assert.Nil(t, got[0].Thumbnail)
}

func TestBroker_GetAllUnknownColumn(t *testing.T) {
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	_, err := books.GetAll(context.Background(), s.DB(), OrderBy("BOO_TITLE; DROP TABLE BOOK"))
	assert.ErrorIs(t, err, types.ErrUnknownColumn)

	_, err = books.GetAll(context.Background(), s.DB(), Select("NOPE"))
	assert.ErrorIs(t, err, types.ErrUnknownColumn)
}

// --- GetAllWhereIn ---

func TestBroker_GetAllWhereInEmptyRunsNoQuery(t *testing.T) {
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	got, err := books.GetAllWhereIn(context.Background(), failingHandle{t}, types.BookColID, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBroker_GetAllWhereIn(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	authors := MustBrokerFor[types.Author](s.Registry())

	var ids []int64
	for i := range 5 {
		id, err := authors.Insert(ctx, s.DB(), &types.Author{Name: types.Ptr(fmt.Sprintf("Author %d", i))})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := authors.GetAllWhereIn(ctx, s.DB(), types.AuthorColID, Int64s([]int64{ids[3], ids[0], 999}))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[0], *got[0].ID)
	assert.Equal(t, ids[3], *got[1].ID)
}

func TestBroker_GetAllWhereInChunks(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	authors := MustBrokerFor[types.Author](s.Registry())

	var ids []int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range whereInChunk + 20 {
			id, err := authors.Insert(ctx, tx, &types.Author{Name: types.Ptr(fmt.Sprintf("Author %04d", i))})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	require.NoError(t, err)

	reversed := make([]int64, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	got, err := authors.GetAllWhereIn(ctx, s.DB(), types.AuthorColID, Int64s(reversed))
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	for i, a := range got {
		assert.Equal(t, ids[i], *a.ID)
	}

	repeated := make([]int64, whereInChunk+100)
	for i := range repeated {
		repeated[i] = ids[0]
	}
	got, err = authors.GetAllWhereIn(ctx, s.DB(), types.AuthorColID, Int64s(repeated))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids[0], *got[0].ID)

	mixed := append(Int64s(ids), Int64s(ids)...)
	got, err = authors.GetAllWhereIn(ctx, s.DB(), types.AuthorColID, mixed)
	require.NoError(t, err)
	assert.Len(t, got, len(ids))
}

func TestDistinct(t *testing.T) {
	blob := []byte{1}
	got := distinct([]any{int64(3), "a", int64(3), nil, "a", nil, blob, int64(4)})
	assert.Equal(t, []any{int64(3), "a", nil, blob, int64(4)}, got)
}

// --- Criteria ---

func TestBroker_GetByCriteria(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	publishers := MustBrokerFor[types.Publisher](s.Registry())

	for _, name := range []string{"Ace", "Tor"} {
		_, err := publishers.Insert(ctx, s.DB(), &types.Publisher{Name: types.Ptr(name)})
		require.NoError(t, err)
	}

	got, ok, err := publishers.GetByCriteria(ctx, s.DB(), &types.Publisher{Name: types.Ptr("Tor")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Tor", *got.Name)

	_, ok, err = publishers.GetByCriteria(ctx, s.DB(), &types.Publisher{Name: types.Ptr("Baen")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBroker_GetByCriteriaMultipleRowsFails(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	for _, title := range []string{"Twin", "Twin"} {
		_, err := books.Insert(ctx, s.DB(), types.NewBook(title))
		require.NoError(t, err)
	}

	got, ok, err := books.GetByCriteria(ctx, s.DB(), &types.Book{Title: types.Ptr("Twin")})
	assert.ErrorIs(t, err, types.ErrMultipleRows)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestBroker_GetAllByCriteria(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())

	read := types.NewBook("Read one")
	read.IsRead = types.Ptr(true)
	for _, b := range []*types.Book{read, types.NewBook("Unread one"), types.NewBook("Unread two")} {
		_, err := books.Insert(ctx, s.DB(), b)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		criteria *types.Book
		want     []string
	}{
		{"all nil matches everything", &types.Book{}, []string{"Read one", "Unread one", "Unread two"}},
		{"false flag", &types.Book{IsRead: types.Ptr(false)}, []string{"Unread one", "Unread two"}},
		{"two fields", &types.Book{IsRead: types.Ptr(false), Title: types.Ptr("Unread two")}, []string{"Unread two"}},
		{"no match", &types.Book{Title: types.Ptr("Missing")}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := books.GetAllByCriteria(ctx, s.DB(), tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}

	n, err := books.Count(ctx, s.DB(), &types.Book{IsRead: types.Ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// --- Transactions ---

func TestBroker_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	books := MustBrokerFor[types.Book](s.Registry())
	publishers := MustBrokerFor[types.Publisher](s.Registry())

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := books.Insert(ctx, tx, types.NewBook("Half saved")); err != nil {
			return err
		}
		_, err := publishers.Insert(ctx, tx, &types.Publisher{})
		return err
	})
	require.ErrorIs(t, err, types.ErrConstraint)

	n, err := books.Count(ctx, s.DB(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func titles(books []*types.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, *b.Title)
	}
	return out
}

func bookIDs(books []*types.Book) []int64 {
	out := make([]int64, 0, len(books))
	for _, b := range books {
		out = append(out, *b.ID)
	}
	return out
}
