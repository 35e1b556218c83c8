package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/address"
)

var _ address.Repository = (*Addresses)(nil)

// Addresses stores user addresses.
type Addresses struct {
	s *Store
}

func (r *Addresses) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	var out []address.Address
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.addresses {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b address.Address) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

func (r *Addresses) Get(ctx context.Context, userID, id string) (*address.Address, error) {
	var a address.Address
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if a, ok = st.addresses[id]; !ok || a.UserID != userID {
			return address.NotFound(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Addresses) Create(ctx context.Context, a *address.Address) error {
	return r.s.do(ctx, func(st *state) error {
		st.addresses[a.ID] = *a
		return nil
	})
}

func (r *Addresses) Update(ctx context.Context, a *address.Address) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.addresses[a.ID]
		if !ok || cur.UserID != a.UserID {
			return address.NotFound(a.ID)
		}
		st.addresses[a.ID] = *a
		return nil
	})
}

func (r *Addresses) Delete(ctx context.Context, userID, id string) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.addresses[id]
		if !ok || cur.UserID != userID {
			return address.NotFound(id)
		}
		delete(st.addresses, id)
		return nil
	})
}

func (r *Addresses) ClearDefault(ctx context.Context, userID string) error {
	return r.s.do(ctx, func(st *state) error {
		for id, a := range st.addresses {
			if a.UserID == userID && a.IsDefault {
				a.IsDefault = false
				st.addresses[id] = a
			}
		}
		return nil
	})
}

func (r *Addresses) InUse(ctx context.Context, id string) (bool, error) {
	var used bool
	err := r.s.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.ShippingAddressID == id || o.BillingAddressID == id {
				used = true
				return nil
			}
		}
		return nil
	})
	return used, err
}
