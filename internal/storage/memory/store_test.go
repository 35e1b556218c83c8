package memory

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/catalog"
)

func seed(t *testing.T, s *Store, stock int) {
	t.Helper()
	require.NoError(t, s.Catalog().Create(context.Background(), &catalog.Product{
		ID:    "p1",
		Name:  "Widget",
		Price: decimal.NewFromInt(3),
		Stock: stock,
	}))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := New()
	seed(t, s, 5)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Catalog().AdjustStock(ctx, "p1", -3))
		c, err := s.Carts().GetOrCreate(ctx, "u1")
		require.NoError(t, err)
		require.NoError(t, s.Carts().SetItem(ctx, c.ID, "p1", 1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Catalog().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.Empty(t, s.st.userCarts)
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	s := New()
	seed(t, s, 5)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context) error {
			return s.Catalog().AdjustStock(ctx, "p1", -2)
		}))
		return errors.New("outer failed")
	})
	require.Error(t, err)

	p, err := s.Catalog().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestAdjustStock_NeverNegative(t *testing.T) {
	s := New()
	seed(t, s, 2)
	ctx := context.Background()

	err := s.Catalog().AdjustStock(ctx, "p1", -3)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	require.NoError(t, s.Catalog().AdjustStock(ctx, "p1", -2))
	p, err := s.Catalog().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, p.Stock)
}

func TestCatalogUpdate_KeepsStock(t *testing.T) {
	s := New()
	seed(t, s, 7)
	ctx := context.Background()

	err := s.Catalog().Update(ctx, &catalog.Product{ID: "p1", Name: "Renamed", Stock: 0})
	require.NoError(t, err)

	p, err := s.Catalog().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, 7, p.Stock)
}

func TestList_Pagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Catalog().Create(ctx, &catalog.Product{ID: id, CategoryID: "cat"}))
	}

	page, err := s.Catalog().List(ctx, catalog.Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)

	empty, err := s.Catalog().List(ctx, catalog.Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
