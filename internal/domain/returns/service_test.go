package returns_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/returns"
	"github.com/xenking/storefront/internal/storage/memory"
)

// --- Helpers ---

type fixture struct {
	store   *memory.Store
	gateway *payment.Simulated
	svc     *returns.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	gw := payment.NewSimulated(nil)
	svc := returns.NewService(returns.Deps{
		Tx:        store,
		Returns:   store.Returns(),
		Orders:    store.Orders(),
		Inventory: store.Catalog(),
		Gateway:   gw,
	})

	require.NoError(t, store.Catalog().Create(context.Background(), &catalog.Product{
		ID:    "p1",
		Name:  "Widget",
		Price: decimal.RequireFromString("25.00"),
		Stock: 10,
	}))
	return &fixture{store: store, gateway: gw, svc: svc}
}

// seedOrder stores a paid order of 4 × p1 for u1 placed at placedAt.
func (f *fixture) seedOrder(t *testing.T, status order.Status, placedAt time.Time) *order.Order {
	t.Helper()
	ctx := context.Background()
	total := decimal.RequireFromString("100.00")
	receipt, err := f.gateway.Charge(ctx, payment.ChargeRequest{OrderID: "o1", Amount: total, Method: "card"})
	require.NoError(t, err)

	o := &order.Order{
		ID:     "o1",
		UserID: "u1",
		Items: []order.Item{{
			ID:          "oi1",
			ProductID:   "p1",
			ProductName: "Widget",
			Quantity:    4,
			UnitPrice:   decimal.RequireFromString("25.00"),
		}},
		Subtotal:         total,
		Discount:         decimal.Zero,
		Total:            total,
		Status:           status,
		PaymentStatus:    order.PaymentCompleted,
		PaymentMethod:    "card",
		PaymentReference: receipt.Reference,
		RefundedAmount:   decimal.Zero,
		OrderDate:        placedAt,
		UpdatedAt:        placedAt,
	}
	require.NoError(t, f.store.Orders().Create(ctx, o))
	return o
}

func request(qty int) returns.CreateRequest {
	return returns.CreateRequest{
		OrderID: "o1",
		Reason:  "broken on arrival",
		Items: []returns.ItemRequest{{
			OrderItemID: "oi1",
			Quantity:    qty,
			Reason:      returns.ReasonDefective,
			Condition:   returns.ConditionDamaged,
		}},
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.store.Catalog().GetByID(context.Background(), "p1")
	require.NoError(t, err)
	return p.Stock
}

// --- Tests ---

func TestCreate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  order.Status
		age     time.Duration
		userID  string
		req     returns.CreateRequest
		wantErr error
		kind    apperr.Kind
	}{
		{
			name:   "ok",
			status: order.StatusDelivered,
			age:    3 * 24 * time.Hour,
			userID: "u1",
			req:    request(2),
		},
		{
			name:   "last day of window",
			status: order.StatusDelivered,
			age:    14*24*time.Hour + time.Hour,
			userID: "u1",
			req:    request(1),
		},
		{
			name:    "window expired",
			status:  order.StatusDelivered,
			age:     15 * 24 * time.Hour,
			userID:  "u1",
			req:     request(1),
			wantErr: returns.ErrPeriodExpired,
		},
		{
			name:    "order not delivered",
			status:  order.StatusShipped,
			age:     24 * time.Hour,
			userID:  "u1",
			req:     request(1),
			wantErr: order.ErrInvalidStatus,
		},
		{
			name:   "someone else's order",
			status: order.StatusDelivered,
			age:    24 * time.Hour,
			userID: "u2",
			req:    request(1),
			kind:   apperr.KindForbidden,
		},
		{
			name:    "more than ordered",
			status:  order.StatusDelivered,
			age:     24 * time.Hour,
			userID:  "u1",
			req:     request(5),
			wantErr: returns.ErrInvalidQuantity,
		},
		{
			name:    "zero quantity",
			status:  order.StatusDelivered,
			age:     24 * time.Hour,
			userID:  "u1",
			req:     request(0),
			wantErr: returns.ErrInvalidQuantity,
		},
		{
			name:    "missing reason",
			status:  order.StatusDelivered,
			age:     24 * time.Hour,
			userID:  "u1",
			req:     returns.CreateRequest{OrderID: "o1", Items: request(1).Items},
			wantErr: returns.ErrInvalidReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedOrder(t, tt.status, time.Now().Add(-tt.age))

			r, err := f.svc.Create(ctx, tt.userID, tt.req)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.kind != apperr.KindInternal:
				assert.Equal(t, tt.kind, apperr.KindOf(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, returns.StatusRequested, r.Status)
				assert.Equal(t, returns.RefundPending, r.RefundStatus)
				require.Len(t, r.Items, 1)
				assert.Equal(t, "p1", r.Items[0].ProductID)
			}
		})
	}
}

func TestCreate_CumulativeQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedOrder(t, order.StatusDelivered, time.Now().Add(-24*time.Hour))

	first, err := f.svc.Create(ctx, "u1", request(3))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, "u1", request(2))
	assert.ErrorIs(t, err, returns.ErrInvalidQuantity)

	_, err = f.svc.Create(ctx, "u1", request(1))
	require.NoError(t, err)

	// Rejected returns free their quantity again.
	_, err = f.svc.Reject(ctx, first.ID, "not defective")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "u1", request(3))
	require.NoError(t, err)
}

func TestLifecycle_RefundFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedOrder(t, order.StatusDelivered, time.Now().Add(-24*time.Hour))

	r, err := f.svc.Create(ctx, "u1", request(2))
	require.NoError(t, err)

	_, err = f.svc.ProcessRefund(ctx, r.ID, decimal.RequireFromString("50"))
	assert.ErrorIs(t, err, returns.ErrAlreadyProcessed)

	_, err = f.svc.UpdateStatus(ctx, r.ID, returns.StatusReceived, "")
	assert.ErrorIs(t, err, returns.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, r.ID, returns.StatusApproved, "label sent")
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t))

	r, err = f.svc.UpdateStatus(ctx, r.ID, returns.StatusReceived, "")
	require.NoError(t, err)
	assert.Equal(t, returns.StatusReceived, r.Status)
	assert.Equal(t, "label sent", r.Notes)
	assert.Equal(t, 12, f.stock(t))

	_, err = f.svc.ProcessRefund(ctx, r.ID, decimal.RequireFromString("150"))
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = f.svc.ProcessRefund(ctx, r.ID, decimal.Zero)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	r, err = f.svc.ProcessRefund(ctx, r.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)
	assert.Equal(t, returns.StatusRefunded, r.Status)
	assert.Equal(t, returns.RefundProcessed, r.RefundStatus)
	require.True(t, r.RefundAmount.Valid)
	assert.True(t, r.RefundAmount.Decimal.Equal(decimal.RequireFromString("50")))

	o, err := f.store.Orders().Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPartiallyRefunded, o.PaymentStatus)
	assert.True(t, o.RefundedAmount.Equal(decimal.RequireFromString("50")))

	_, err = f.svc.ProcessRefund(ctx, r.ID, decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, returns.ErrAlreadyProcessed)

	_, err = f.svc.UpdateStatus(ctx, r.ID, returns.StatusApproved, "")
	assert.ErrorIs(t, err, returns.ErrInvalidTransition)
}

func TestRefund_FullAmountMarksOrderRefunded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedOrder(t, order.StatusDelivered, time.Now().Add(-24*time.Hour))

	r, err := f.svc.Create(ctx, "u1", request(4))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, r.ID, returns.StatusApproved, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, r.ID, returns.StatusReceived, "")
	require.NoError(t, err)
	_, err = f.svc.ProcessRefund(ctx, r.ID, decimal.RequireFromString("100"))
	require.NoError(t, err)

	o, err := f.store.Orders().Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentRefunded, o.PaymentStatus)
	assert.True(t, o.RefundableAmount().IsZero())
}

func TestUpdateStatus_RefundAndRejectNeedDedicatedOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedOrder(t, order.StatusDelivered, time.Now().Add(-24*time.Hour))
	r, err := f.svc.Create(ctx, "u1", request(1))
	require.NoError(t, err)

	for _, st := range []returns.Status{returns.StatusRefunded, returns.StatusRejected} {
		_, err := f.svc.UpdateStatus(ctx, r.ID, st, "")
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err), st)
	}
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedOrder(t, order.StatusDelivered, time.Now().Add(-24*time.Hour))
	r, err := f.svc.Create(ctx, "u1", request(1))
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, r.ID, "  ")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	r, err = f.svc.Reject(ctx, r.ID, "outside policy")
	require.NoError(t, err)
	assert.Equal(t, returns.StatusRejected, r.Status)
	assert.Equal(t, returns.RefundRejected, r.RefundStatus)
	assert.True(t, r.Status.Terminal())

	_, err = f.svc.Reject(ctx, r.ID, "again")
	assert.ErrorIs(t, err, returns.ErrInvalidTransition)
}

func TestVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedOrder(t, order.StatusDelivered, time.Now().Add(-24*time.Hour))
	r, err := f.svc.Create(ctx, "u1", request(1))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, auth.Identity{UserID: "u2"}, r.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.ListForOrder(ctx, auth.Identity{UserID: "u2"}, "o1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := f.svc.ListForOrder(ctx, auth.Identity{UserID: "u1"}, "o1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	all, err := f.svc.ListAll(ctx, returns.StatusRequested)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := f.svc.ListAll(ctx, returns.StatusRefunded)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to returns.Status
		want     bool
	}{
		{returns.StatusRequested, returns.StatusApproved, true},
		{returns.StatusRequested, returns.StatusRejected, true},
		{returns.StatusRequested, returns.StatusReceived, false},
		{returns.StatusApproved, returns.StatusReceived, true},
		{returns.StatusApproved, returns.StatusRejected, false},
		{returns.StatusReceived, returns.StatusRefunded, true},
		{returns.StatusRefunded, returns.StatusRequested, false},
		{returns.StatusRejected, returns.StatusApproved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, returns.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
