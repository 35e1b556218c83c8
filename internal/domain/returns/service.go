package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/txn"
)

// DefaultWindow is how long after placement an order can be returned.
const DefaultWindow = 14 * 24 * time.Hour

const day = 24 * time.Hour

// OrderStore is the part of order persistence returns need.
type OrderStore interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	GetForUpdate(ctx context.Context, id string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
}

// ItemRequest is one line of a return request.
type ItemRequest struct {
	OrderItemID string
	Quantity    int
	Reason      Reason
	Condition   Condition
	Comments    string
}

// CreateRequest holds the input for filing a return.
type CreateRequest struct {
	OrderID string
	Reason  string
	Items   []ItemRequest
}

// Deps groups the collaborators of Service.
type Deps struct {
	Tx        txn.Runner
	Returns   Repository
	Orders    OrderStore
	Inventory catalog.Inventory
	Gateway   payment.Gateway
	// Window defaults to DefaultWindow.
	Window  time.Duration
	Metrics *Metrics
}

// Service implements the return workflow.
type Service struct {
	tx        txn.Runner
	returns   Repository
	orders    OrderStore
	inventory catalog.Inventory
	gateway   payment.Gateway
	window    time.Duration
	metrics   *Metrics
	now       func() time.Time
}

// NewService creates a returns Service.
func NewService(d Deps) *Service {
	if d.Window <= 0 {
		d.Window = DefaultWindow
	}
	return &Service{
		tx:        d.Tx,
		returns:   d.Returns,
		orders:    d.Orders,
		inventory: d.Inventory,
		gateway:   d.Gateway,
		window:    d.Window,
		metrics:   d.Metrics,
		now:       time.Now,
	}
}

// Create files a return for items of the user's delivered order. The order
// must still be inside the return window, counted in whole days since it was
// placed, and no line may return more than was ordered across all returns
// that were not rejected.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Return, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, ErrInvalidReason
	}
	if len(req.Items) == 0 {
		return nil, apperr.Invalid("items", "at least one item is required")
	}

	var r *Return
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return apperr.Forbidden("order belongs to another user")
		}
		if o.Status != order.StatusDelivered {
			return order.ErrInvalidStatus.Withf("only delivered orders can be returned, order is %s", o.Status)
		}

		now := s.now()
		windowDays := int(s.window / day)
		if elapsed := int(now.Sub(o.OrderDate) / day); elapsed > windowDays {
			return ErrPeriodExpired.Withf("return period of %d days has expired", windowDays)
		}

		returned, err := s.returnedQuantities(ctx, o.ID)
		if err != nil {
			return err
		}

		items := make([]Item, 0, len(req.Items))
		for i, in := range req.Items {
			field := fmt.Sprintf("items[%d]", i)
			if !in.Reason.valid() {
				return ErrInvalidReason.Withf("invalid return reason %q", in.Reason).WithField(field + ".reason")
			}
			if !in.Condition.valid() {
				return apperr.Invalid(field+".condition", fmt.Sprintf("invalid item condition %q", in.Condition))
			}
			oi, ok := o.Item(in.OrderItemID)
			if !ok {
				return apperr.NotFound("order item", in.OrderItemID)
			}
			if in.Quantity <= 0 || returned[oi.ID]+in.Quantity > oi.Quantity {
				return ErrInvalidQuantity.WithField(field + ".quantity")
			}
			returned[oi.ID] += in.Quantity

			items = append(items, Item{
				ID:          uuid.New().String(),
				OrderItemID: oi.ID,
				ProductID:   oi.ProductID,
				Quantity:    in.Quantity,
				Reason:      in.Reason,
				Condition:   in.Condition,
				Comments:    in.Comments,
			})
		}

		r = &Return{
			ID:           uuid.New().String(),
			OrderID:      o.ID,
			UserID:       userID,
			Status:       StatusRequested,
			Reason:       strings.TrimSpace(req.Reason),
			Items:        items,
			RefundStatus: RefundPending,
			ReturnDate:   now,
			UpdatedAt:    now,
		}
		return s.returns.Create(ctx, r)
	})
	if err != nil {
		return nil, errors.Wrap(err, "create return")
	}
	return r, nil
}

// returnedQuantities sums returned quantities per order item over returns
// of the order that were not rejected.
func (s *Service) returnedQuantities(ctx context.Context, orderID string) (map[string]int, error) {
	existing, err := s.returns.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "list order returns")
	}
	out := make(map[string]int)
	for _, r := range existing {
		if r.Status == StatusRejected {
			continue
		}
		for _, it := range r.Items {
			out[it.OrderItemID] += it.Quantity
		}
	}
	return out, nil
}

// Get returns a return visible to actor.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id string) (*Return, error) {
	r, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, NotFound(id)
	}
	return r, nil
}

// ListForUser returns the user's returns.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Return, error) {
	return s.returns.ListByUser(ctx, userID)
}

// ListForOrder returns the returns filed against an order visible to actor.
func (s *Service) ListForOrder(ctx context.Context, actor auth.Identity, orderID string) ([]Return, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, order.NotFound(orderID)
	}
	return s.returns.ListByOrder(ctx, orderID)
}

// ListAll returns all returns, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status Status) ([]Return, error) {
	return s.returns.List(ctx, status)
}

// UpdateStatus advances a return to APPROVED or RECEIVED. Receiving a return
// puts its items back in stock. Refunds and rejections have dedicated
// operations.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, notes string) (*Return, error) {
	switch status {
	case StatusRefunded:
		return nil, apperr.Invalid("status", "use the refund operation to refund a return")
	case StatusRejected:
		return nil, apperr.Invalid("status", "use the reject operation to reject a return")
	}

	var r *Return
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.returns.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, status) {
			return ErrInvalidTransition.Withf("cannot move return from %s to %s", r.Status, status)
		}
		if status == StatusReceived {
			for _, it := range r.Items {
				if err := s.inventory.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
					return errors.Wrapf(err, "restock %s", it.ProductID)
				}
			}
		}
		r.Status = status
		if notes != "" {
			r.Notes = notes
		}
		r.UpdatedAt = s.now()
		return s.returns.Update(ctx, r)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update return status")
	}
	if status == StatusReceived {
		s.metrics.returnReceived(ctx, r)
	}
	return r, nil
}

// ProcessRefund refunds amount for a received return. Refunds across all
// returns of an order never exceed the order total. Captured payments are
// refunded through the gateway.
func (s *Service) ProcessRefund(ctx context.Context, id string, amount decimal.Decimal) (*Return, error) {
	if !amount.IsPositive() {
		return nil, apperr.Invalid("refundAmount", "refund amount must be greater than 0")
	}
	amount = amount.Round(2)

	var r *Return
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.returns.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusReceived {
			return ErrAlreadyProcessed.Withf("return %s is %s, refunds require %s", r.ID, r.Status, StatusReceived)
		}

		o, err := s.orders.GetForUpdate(ctx, r.OrderID)
		if err != nil {
			return err
		}
		if refundable := o.RefundableAmount(); amount.GreaterThan(refundable) {
			return apperr.Invalid("refundAmount",
				"refund amount exceeds refundable balance of "+refundable.StringFixed(2))
		}
		if o.PaymentStatus.Captured() && o.PaymentReference != "" {
			if _, err := s.gateway.Refund(ctx, payment.RefundRequest{
				OrderID:   o.ID,
				Reference: o.PaymentReference,
				Amount:    amount,
			}); err != nil {
				return errors.Wrap(err, "gateway refund")
			}
		}

		now := s.now()
		o.RefundedAmount = o.RefundedAmount.Add(amount)
		if o.RefundedAmount.GreaterThanOrEqual(o.Total) {
			o.PaymentStatus = order.PaymentRefunded
		} else {
			o.PaymentStatus = order.PaymentPartiallyRefunded
		}
		o.UpdatedAt = now
		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		r.Status = StatusRefunded
		r.RefundAmount = decimal.NewNullDecimal(amount)
		r.RefundStatus = RefundProcessed
		r.UpdatedAt = now
		return s.returns.Update(ctx, r)
	})
	if err != nil {
		return nil, errors.Wrap(err, "process refund")
	}
	s.metrics.refundProcessed(ctx, amount)
	return r, nil
}

// Reject declines a requested return. Notes explaining the decision are
// required.
func (s *Service) Reject(ctx context.Context, id, notes string) (*Return, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, apperr.Invalid("notes", "rejection notes are required")
	}

	var r *Return
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.returns.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, StatusRejected) {
			return ErrInvalidTransition.Withf("cannot reject return in status %s", r.Status)
		}
		r.Status = StatusRejected
		r.RefundStatus = RefundRejected
		r.Notes = strings.TrimSpace(notes)
		r.UpdatedAt = s.now()
		return s.returns.Update(ctx, r)
	})
	if err != nil {
		return nil, errors.Wrap(err, "reject return")
	}
	return r, nil
}
