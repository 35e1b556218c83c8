package order

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/txn"
)

// CartStore is the part of cart persistence order placement needs.
type CartStore interface {
	GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

// AddressLookup resolves an address owned by a user.
type AddressLookup interface {
	Get(ctx context.Context, userID, id string) (*address.Address, error)
}

// PlaceOrderRequest holds the input for placing an order from the cart.
type PlaceOrderRequest struct {
	ShippingAddressID string
	// BillingAddressID defaults to the shipping address when empty.
	BillingAddressID string
	PaymentMethod    string
	CouponCode       string
}

// Deps groups the collaborators of Service.
type Deps struct {
	Tx        txn.Runner
	Orders    Repository
	Carts     CartStore
	Inventory catalog.Inventory
	Addresses AddressLookup
	Coupons   coupon.Applier
	Gateway   payment.Gateway
	// Metrics is optional.
	Metrics *Metrics
}

// Service encapsulates the order lifecycle.
type Service struct {
	tx        txn.Runner
	orders    Repository
	carts     CartStore
	inventory catalog.Inventory
	addresses AddressLookup
	coupons   coupon.Applier
	gateway   payment.Gateway
	metrics   *Metrics
	now       func() time.Time
}

// NewService creates an order Service.
func NewService(d Deps) *Service {
	return &Service{
		tx:        d.Tx,
		orders:    d.Orders,
		carts:     d.Carts,
		inventory: d.Inventory,
		addresses: d.Addresses,
		coupons:   d.Coupons,
		gateway:   d.Gateway,
		metrics:   d.Metrics,
		now:       time.Now,
	}
}

// PlaceOrder turns the user's cart into an order. Within one transaction it
// verifies stock for every line, applies the coupon, snapshots the items,
// decrements stock and clears the cart. Nothing is persisted on failure.
//
// A supplied coupon must apply; an inapplicable coupon fails the order with
// the specific coupon error rather than being dropped.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*Order, error) {
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, apperr.Invalid("paymentMethod", "payment method is required")
	}
	if req.ShippingAddressID == "" {
		return nil, apperr.Invalid("shippingAddressId", "shipping address is required")
	}
	if req.BillingAddressID == "" {
		req.BillingAddressID = req.ShippingAddressID
	}

	var o *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()

		for _, id := range []string{req.ShippingAddressID, req.BillingAddressID} {
			if _, err := s.addresses.Get(ctx, userID, id); err != nil {
				return err
			}
		}

		c, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "get cart")
		}
		if c.IsEmpty() {
			return ErrEmptyCart
		}

		ids := make([]string, len(c.Items))
		for i, it := range c.Items {
			ids[i] = it.ProductID
		}
		slices.Sort(ids)
		products, err := s.inventory.LockProducts(ctx, slices.Compact(ids))
		if err != nil {
			return errors.Wrap(err, "lock products")
		}
		byID := make(map[string]catalog.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		// Every line is checked before any stock is touched.
		items := make([]Item, 0, len(c.Items))
		subtotal := decimal.Zero
		for _, it := range c.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return catalog.ProductNotFound(it.ProductID)
			}
			if it.Quantity > p.Stock {
				return catalog.InsufficientStock(&p, it.Quantity)
			}
			item := Item{
				ID:          uuid.New().String(),
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    it.Quantity,
				UnitPrice:   p.Price,
			}
			items = append(items, item)
			subtotal = subtotal.Add(item.Subtotal())
		}
		subtotal = subtotal.Round(2)

		o = &Order{
			ID:                uuid.New().String(),
			UserID:            userID,
			Items:             items,
			ShippingAddressID: req.ShippingAddressID,
			BillingAddressID:  req.BillingAddressID,
			Subtotal:          subtotal,
			Discount:          decimal.Zero,
			Status:            StatusPending,
			PaymentStatus:     PaymentPending,
			PaymentMethod:     strings.TrimSpace(req.PaymentMethod),
			RefundedAmount:    decimal.Zero,
			OrderDate:         now,
			UpdatedAt:         now,
		}

		if req.CouponCode != "" {
			app, err := s.coupons.ApplyAt(ctx, req.CouponCode, subtotal, now)
			if err != nil {
				return err
			}
			o.CouponID = app.Coupon.ID
			o.CouponCode = app.Coupon.Code
			o.Discount = app.Discount
		}

		// Total = subtotal - discount, floored at zero and rounded to 2 decimal places.
		total := subtotal.Sub(o.Discount)
		if total.IsNegative() {
			total = decimal.Zero
		}
		o.Total = total.Round(2)

		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		for _, it := range items {
			if err := s.inventory.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
				return err
			}
		}
		return s.carts.Clear(ctx, c.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	s.metrics.orderPlaced(ctx, o)
	return o, nil
}

// Get returns an order visible to actor. Orders of other users are reported
// as not found unless actor is an admin.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, NotFound(id)
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status Status) ([]Order, error) {
	return s.orders.List(ctx, status)
}

// ListForSeller returns orders containing the seller's products.
func (s *Service) ListForSeller(ctx context.Context, sellerID string) ([]Order, error) {
	return s.orders.ListBySeller(ctx, sellerID)
}

// Cancel cancels the user's order and restores stock for every item.
func (s *Service) Cancel(ctx context.Context, userID, id string) (*Order, error) {
	var o *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return NotFound(id)
		}
		return s.cancel(ctx, o)
	})
	if err != nil {
		return nil, errors.Wrap(err, "cancel order")
	}
	s.metrics.orderCancelled(ctx)
	return o, nil
}

// UpdateStatus moves an order to status on behalf of an administrator.
// CANCELLED is terminal, moving to CANCELLED restores stock, and RETURNED is
// only reachable from DELIVERED.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	var (
		o         *Order
		cancelled bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return ErrInvalidStatus.Withf("order %s is cancelled", id)
		}
		if o.Status == status {
			return nil
		}
		switch status {
		case StatusCancelled:
			cancelled = true
			return s.cancel(ctx, o)
		case StatusReturned:
			if o.Status != StatusDelivered {
				return ErrInvalidStatus.Withf("only delivered orders can be marked returned, order is %s", o.Status)
			}
		}
		o.Status = status
		o.UpdatedAt = s.now()
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	if cancelled {
		s.metrics.orderCancelled(ctx)
	}
	return o, nil
}

// UpdatePaymentStatus overrides the payment status of a live order.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, ps PaymentStatus) (*Order, error) {
	var o *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return ErrInvalidStatus.Withf("cannot change payment status of cancelled order %s", id)
		}
		o.PaymentStatus = ps
		o.UpdatedAt = s.now()
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update payment status")
	}
	return o, nil
}

// Pay charges the order total through the payment gateway. The charge is
// made while the order row is locked, so concurrent Pay or Cancel calls see
// the recorded outcome instead of charging twice. A declined charge is
// recorded as FAILED and reported as ErrPaymentFailed; the order may be paid
// again afterwards. If the outcome cannot be recorded, a captured charge is
// refunded.
func (s *Service) Pay(ctx context.Context, userID, id string) (*Order, error) {
	var (
		o         *Order
		receipt   *payment.Receipt
		chargeErr error
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return NotFound(id)
		}
		if err := payable(o); err != nil {
			return err
		}

		if o.Total.IsPositive() {
			receipt, chargeErr = s.gateway.Charge(ctx, payment.ChargeRequest{
				OrderID: o.ID,
				Amount:  o.Total,
				Method:  o.PaymentMethod,
			})
		}
		s.metrics.paymentAttempt(ctx, chargeErr == nil)

		if chargeErr != nil {
			o.PaymentStatus = PaymentFailed
		} else {
			o.PaymentStatus = PaymentCompleted
			if receipt != nil {
				o.PaymentReference = receipt.Reference
			}
		}
		o.UpdatedAt = s.now()
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		if receipt != nil {
			s.voidCharge(ctx, id, receipt)
		}
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, errors.Wrap(err, "record payment")
	}
	if chargeErr != nil {
		return nil, ErrPaymentFailed.Withf("payment for order %s was declined", id)
	}
	return o, nil
}

// voidCharge refunds a charge whose outcome could not be stored.
func (s *Service) voidCharge(ctx context.Context, orderID string, r *payment.Receipt) {
	_, err := s.gateway.Refund(context.WithoutCancel(ctx), payment.RefundRequest{
		OrderID:   orderID,
		Reference: r.Reference,
		Amount:    r.Amount,
	})
	if err != nil {
		zctx.From(ctx).Error("Unrecorded charge could not be refunded",
			zap.String("order_id", orderID),
			zap.String("reference", r.Reference),
			zap.Error(err),
		)
	}
}

func payable(o *Order) error {
	if o.Status == StatusCancelled {
		return ErrInvalidStatus.Withf("order %s is cancelled", o.ID)
	}
	switch o.PaymentStatus {
	case PaymentCompleted, PaymentRefunded, PaymentPartiallyRefunded:
		return ErrInvalidStatus.Withf("order %s is already paid", o.ID)
	}
	return nil
}

// cancel restores stock and marks o cancelled. It must run inside a
// transaction holding the order lock.
func (s *Service) cancel(ctx context.Context, o *Order) error {
	if o.Status == StatusCancelled {
		return ErrInvalidStatus.Withf("order %s is already cancelled", o.ID)
	}
	if !o.Status.Cancellable() {
		return ErrCancelNotAllowed
	}

	for _, it := range o.Items {
		if err := s.inventory.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			return errors.Wrapf(err, "restore stock for %s", it.ProductID)
		}
	}

	if o.PaymentStatus.Captured() && o.PaymentReference != "" {
		if amount := o.RefundableAmount(); amount.IsPositive() {
			if _, err := s.gateway.Refund(ctx, payment.RefundRequest{
				OrderID:   o.ID,
				Reference: o.PaymentReference,
				Amount:    amount,
			}); err != nil {
				return errors.Wrap(err, "refund cancelled order")
			}
			o.RefundedAmount = o.RefundedAmount.Add(amount)
		}
		o.PaymentStatus = PaymentRefunded
	}

	o.Status = StatusCancelled
	o.UpdatedAt = s.now()
	return s.orders.Update(ctx, o)
}
