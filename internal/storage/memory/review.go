package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/review"
)

var _ review.Repository = (*Reviews)(nil)

// Reviews stores product reviews.
type Reviews struct {
	s *Store
}

func (r *Reviews) Get(ctx context.Context, id string) (*review.Review, error) {
	var rv review.Review
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if rv, ok = st.reviews[id]; !ok {
			return review.NotFound(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *Reviews) ListByProduct(ctx context.Context, productID string) ([]review.Review, error) {
	var out []review.Review
	err := r.s.do(ctx, func(st *state) error {
		for _, rv := range st.reviews {
			if rv.ProductID == productID {
				out = append(out, rv)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b review.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

func (r *Reviews) Create(ctx context.Context, rv *review.Review) error {
	return r.s.do(ctx, func(st *state) error {
		st.reviews[rv.ID] = *rv
		return nil
	})
}

func (r *Reviews) Update(ctx context.Context, rv *review.Review) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.reviews[rv.ID]; !ok {
			return review.NotFound(rv.ID)
		}
		st.reviews[rv.ID] = *rv
		return nil
	})
}

func (r *Reviews) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.reviews[id]; !ok {
			return review.NotFound(id)
		}
		delete(st.reviews, id)
		return nil
	})
}
