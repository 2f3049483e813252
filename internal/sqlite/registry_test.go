package sqlite

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestRegistry_ReturnsSameBroker(t *testing.T) {
	reg := newRegistry(t, libraryEntries()...)

	b1, err := BrokerFor[types.Book](reg)
	require.NoError(t, err)
	b2, err := BrokerFor[types.Book](reg)
	require.NoError(t, err)
	assert.Same(t, b1, b2)
	assert.Equal(t, types.BookTable, b1.Schema().Table())
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	reg := newRegistry(t, libraryEntries()...)
	want := MustBrokerFor[types.Author](reg)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := BrokerFor[types.Author](reg)
			assert.NoError(t, err)
			assert.Same(t, want, got)
		}()
	}
	wg.Wait()
}

func TestRegistry_NotRegistered(t *testing.T) {
	reg := newRegistry(t, Register[types.Book]())

	_, err := BrokerFor[types.Author](reg)
	assert.ErrorIs(t, err, types.ErrNotRegistered)
	assert.Panics(t, func() { MustBrokerFor[types.Author](reg) })
}

func TestRegistry_DuplicateTable(t *testing.T) {
	_, err := NewRegistry(Register[shelfBookV1](), Register[shelfBookV2]())
	assert.ErrorIs(t, err, types.ErrInvalidSchema)
}

func TestRegistry_InvalidSchemaFailsConstruction(t *testing.T) {
	_, err := NewRegistry(Register[types.Book](), Entry{})
	assert.ErrorIs(t, err, types.ErrInvalidSchema)
}

func TestRegistry_SchemasInOrder(t *testing.T) {
	reg := newRegistry(t, libraryEntries()...)

	var names []string
	for _, s := range reg.Schemas() {
		names = append(names, s.Table())
	}
	assert.Equal(t, []string{
		types.PublisherTable, types.AuthorTable, types.BookTable, types.BookAuthorTable,
		types.CategoryTable, types.BookCategoryTable, types.SeriesTable, types.BookLocationTable,
		types.ScannedIsbnTable,
	}, names)
	assert.Equal(t, 5, reg.LatestVersion())

	s, ok := reg.Schema(types.SeriesTable)
	require.True(t, ok)
	assert.Equal(t, 3, s.Version())
}
