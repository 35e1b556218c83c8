package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.Repository = (*Orders)(nil)

// Orders stores placed orders with their item snapshots.
type Orders struct {
	s *Store
}

func (r *Orders) Create(ctx context.Context, o *order.Order) error {
	return r.s.do(ctx, func(st *state) error {
		st.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func (r *Orders) Get(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.s.do(ctx, func(st *state) error {
		cur, ok := st.orders[id]
		if !ok {
			return order.NotFound(id)
		}
		o = copyOrder(cur)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Orders) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r *Orders) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, func(_ *state, o order.Order) bool { return o.UserID == userID })
}

func (r *Orders) List(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.list(ctx, func(_ *state, o order.Order) bool { return status == "" || o.Status == status })
}

func (r *Orders) ListBySeller(ctx context.Context, sellerID string) ([]order.Order, error) {
	return r.list(ctx, func(st *state, o order.Order) bool {
		for _, it := range o.Items {
			if p, ok := st.products[it.ProductID]; ok && p.SellerID == sellerID {
				return true
			}
		}
		return false
	})
}

// Update persists the mutable header fields. Items and amounts are frozen.
func (r *Orders) Update(ctx context.Context, o *order.Order) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return order.NotFound(o.ID)
		}
		cur.Status = o.Status
		cur.PaymentStatus = o.PaymentStatus
		cur.PaymentReference = o.PaymentReference
		cur.RefundedAmount = o.RefundedAmount
		cur.UpdatedAt = o.UpdatedAt
		st.orders[o.ID] = cur
		return nil
	})
}

func (r *Orders) list(ctx context.Context, keep func(st *state, o order.Order) bool) ([]order.Order, error) {
	var out []order.Order
	err := r.s.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if keep(st, o) {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.OrderDate.Compare(a.OrderDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}
