package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/returns"
)

var _ returns.Repository = (*Returns)(nil)

// Returns stores return requests.
type Returns struct {
	s *Store
}

func (r *Returns) Create(ctx context.Context, ret *returns.Return) error {
	return r.s.do(ctx, func(st *state) error {
		st.returns[ret.ID] = copyReturn(*ret)
		return nil
	})
}

func (r *Returns) Get(ctx context.Context, id string) (*returns.Return, error) {
	var ret returns.Return
	err := r.s.do(ctx, func(st *state) error {
		cur, ok := st.returns[id]
		if !ok {
			return returns.NotFound(id)
		}
		ret = copyReturn(cur)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *Returns) GetForUpdate(ctx context.Context, id string) (*returns.Return, error) {
	return r.Get(ctx, id)
}

func (r *Returns) ListByUser(ctx context.Context, userID string) ([]returns.Return, error) {
	return r.list(ctx, func(ret returns.Return) bool { return ret.UserID == userID })
}

func (r *Returns) ListByOrder(ctx context.Context, orderID string) ([]returns.Return, error) {
	return r.list(ctx, func(ret returns.Return) bool { return ret.OrderID == orderID })
}

func (r *Returns) List(ctx context.Context, status returns.Status) ([]returns.Return, error) {
	return r.list(ctx, func(ret returns.Return) bool { return status == "" || ret.Status == status })
}

func (r *Returns) Update(ctx context.Context, ret *returns.Return) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.returns[ret.ID]
		if !ok {
			return returns.NotFound(ret.ID)
		}
		cur.Status = ret.Status
		cur.RefundAmount = ret.RefundAmount
		cur.RefundStatus = ret.RefundStatus
		cur.Notes = ret.Notes
		cur.UpdatedAt = ret.UpdatedAt
		st.returns[ret.ID] = cur
		return nil
	})
}

func (r *Returns) list(ctx context.Context, keep func(returns.Return) bool) ([]returns.Return, error) {
	var out []returns.Return
	err := r.s.do(ctx, func(st *state) error {
		for _, ret := range st.returns {
			if keep(ret) {
				out = append(out, copyReturn(ret))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b returns.Return) int {
		if c := b.ReturnDate.Compare(a.ReturnDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}
