package review_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/storage/memory"
)

var (
	author   = auth.Identity{UserID: "u1", Roles: []auth.Role{auth.RoleCustomer}}
	stranger = auth.Identity{UserID: "u2", Roles: []auth.Role{auth.RoleCustomer}}
	admin    = auth.Identity{UserID: "root", Roles: []auth.Role{auth.RoleAdmin}}
)

func newService(t *testing.T) *review.Service {
	t.Helper()
	store := memory.New()
	p := catalog.Product{ID: "p1", Name: "Pen", Price: decimal.RequireFromString("1.25"), Stock: 5}
	require.NoError(t, store.Catalog().Create(context.Background(), &p))
	return review.NewService(store, store.Reviews(), store.Catalog())
}

func TestInput_Validate(t *testing.T) {
	for _, tt := range []struct {
		name  string
		in    review.Input
		field string
	}{
		{name: "valid", in: review.Input{Rating: 5, Comment: "great"}},
		{name: "rating too low", in: review.Input{Rating: 0, Comment: "meh"}, field: "rating"},
		{name: "rating too high", in: review.Input{Rating: 6, Comment: "wow"}, field: "rating"},
		{name: "blank comment", in: review.Input{Rating: 3, Comment: "   "}, field: "comment"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			e, ok := apperr.From(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindInvalidInput, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestCreate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, author.UserID, "p1", review.Input{Rating: 4, Comment: "  writes well "})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "p1", r.ProductID)
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, "writes well", r.Comment)

	_, err = svc.Create(ctx, author.UserID, "missing", review.Input{Rating: 4, Comment: "ok"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Create(ctx, author.UserID, "p1", review.Input{Rating: 9, Comment: "ok"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestListForProduct(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	list, err := svc.ListForProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, list)

	a, err := svc.Create(ctx, author.UserID, "p1", review.Input{Rating: 4, Comment: "good"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, stranger.UserID, "p1", review.Input{Rating: 2, Comment: "leaks"})
	require.NoError(t, err)

	list, err = svc.ListForProduct(ctx, "p1")
	require.NoError(t, err)
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	_, err = svc.ListForProduct(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdate_OwnerOrAdmin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, author.UserID, "p1", review.Input{Rating: 4, Comment: "good"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, r.ID, review.Input{Rating: 1, Comment: "bad"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	updated, err := svc.Update(ctx, author, r.ID, review.Input{Rating: 5, Comment: "better"})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.False(t, updated.UpdatedAt.Before(r.UpdatedAt))

	updated, err = svc.Update(ctx, admin, r.ID, review.Input{Rating: 3, Comment: "moderated"})
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Comment)

	_, err = svc.Update(ctx, author, "missing", review.Input{Rating: 3, Comment: "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDelete_OwnerOrAdmin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, author.UserID, "p1", review.Input{Rating: 4, Comment: "good"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, author.UserID, "p1", review.Input{Rating: 2, Comment: "changed my mind"})
	require.NoError(t, err)

	err = svc.Delete(ctx, stranger, first.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, svc.Delete(ctx, author, first.ID))
	require.NoError(t, svc.Delete(ctx, admin, second.ID))

	err = svc.Delete(ctx, author, first.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := svc.ListForProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
