package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusReturned   Status = "RETURNED"
	StatusCancelled  Status = "CANCELLED"
)

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusConfirmed:  2,
	StatusShipped:    3,
	StatusDelivered:  4,
	StatusReturned:   5,
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusRank[st]; ok || st == StatusCancelled {
		return st, nil
	}
	return "", apperr.Invalid("status", "unknown order status "+s)
}

// Before reports whether s precedes other in the fulfilment progression.
// CANCELLED is outside the progression and is never before anything.
func (s Status) Before(other Status) bool {
	a, ok1 := statusRank[s]
	b, ok2 := statusRank[other]
	return ok1 && ok2 && a < b
}

// Cancellable reports whether an owner may still cancel the order.
func (s Status) Cancellable() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusConfirmed:
		return true
	}
	return false
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// ParsePaymentStatus validates s.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(s); ps {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return ps, nil
	}
	return "", apperr.Invalid("paymentStatus", "unknown payment status "+s)
}

// Captured reports whether money has been collected for the order.
func (ps PaymentStatus) Captured() bool {
	return ps == PaymentCompleted || ps == PaymentPartiallyRefunded
}

var (
	ErrEmptyCart = apperr.New(apperr.KindInvalidInput, apperr.CodeOrderEmptyCart, "cart is empty")
	// ErrInvalidStatus covers transitions the order state machine forbids.
	ErrInvalidStatus = apperr.New(apperr.KindInvalidStateTransition, apperr.CodeOrderInvalidStatus,
		"invalid order status transition")
	// ErrCancelNotAllowed is returned when an order has progressed too far to
	// be cancelled.
	ErrCancelNotAllowed = apperr.New(apperr.KindInvalidStateTransition, apperr.CodeOrderCancelLimit,
		"cancel not allowed at this stage, contact support")
	ErrPaymentFailed = apperr.New(apperr.KindPaymentFailed, apperr.CodeOrderPaymentFailed, "payment failed")
)

// NotFound returns the not-found error for order id.
func NotFound(id string) error {
	return apperr.NotFound("order", id)
}

// Item is an immutable snapshot of a purchased product.
type Item struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Subtotal returns UnitPrice × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed order. Items, Subtotal, Discount and Total are frozen at
// creation.
type Order struct {
	ID                string
	UserID            string
	Items             []Item
	ShippingAddressID string
	BillingAddressID  string
	CouponID          string
	CouponCode        string
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	Status            Status
	PaymentStatus     PaymentStatus
	PaymentMethod     string
	PaymentReference  string
	RefundedAmount    decimal.Decimal
	OrderDate         time.Time
	UpdatedAt         time.Time
}

// Item returns the order line with the given id.
func (o *Order) Item(id string) (Item, bool) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// RefundableAmount returns the part of the total not refunded yet.
func (o *Order) RefundableAmount() decimal.Decimal {
	rest := o.Total.Sub(o.RefundedAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order header and its items.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// GetForUpdate loads the order and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns all orders with the given status (any status when empty),
	// newest first.
	List(ctx context.Context, status Status) ([]Order, error)
	// ListBySeller returns orders containing a product of the seller.
	ListBySeller(ctx context.Context, sellerID string) ([]Order, error)
	// Update persists the mutable header fields: status, payment status,
	// payment reference, refunded amount and update time.
	Update(ctx context.Context, o *Order) error
}
