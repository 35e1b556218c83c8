package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/coupon"
)

var _ coupon.Repository = (*Coupons)(nil)

// Coupons stores coupons keyed by id. Codes are unique and case-sensitive.
type Coupons struct {
	s *Store
}

func (r *Coupons) List(ctx context.Context) ([]coupon.Coupon, error) {
	var out []coupon.Coupon
	err := r.s.do(ctx, func(st *state) error {
		for _, c := range st.coupons {
			out = append(out, c)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b coupon.Coupon) int { return cmp.Compare(a.Code, b.Code) })
	return out, err
}

func (r *Coupons) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if c, ok = st.coupons[id]; !ok {
			return apperr.NotFound("coupon", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Coupons) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var (
		c     coupon.Coupon
		found bool
	)
	err := r.s.do(ctx, func(st *state) error {
		for _, existing := range st.coupons {
			if existing.Code == code {
				c, found = existing, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, coupon.ErrInvalidCoupon
	}
	return &c, nil
}

func (r *Coupons) Create(ctx context.Context, c *coupon.Coupon) error {
	return r.s.do(ctx, func(st *state) error {
		if codeTaken(st, c.Code, c.ID) {
			return coupon.ErrDuplicateCode
		}
		st.coupons[c.ID] = *c
		return nil
	})
}

func (r *Coupons) Update(ctx context.Context, c *coupon.Coupon) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.coupons[c.ID]; !ok {
			return apperr.NotFound("coupon", c.ID)
		}
		if codeTaken(st, c.Code, c.ID) {
			return coupon.ErrDuplicateCode
		}
		st.coupons[c.ID] = *c
		return nil
	})
}

func (r *Coupons) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.coupons[id]; !ok {
			return apperr.NotFound("coupon", id)
		}
		delete(st.coupons, id)
		return nil
	})
}

func codeTaken(st *state, code, selfID string) bool {
	for id, c := range st.coupons {
		if c.Code == code && id != selfID {
			return true
		}
	}
	return false
}
