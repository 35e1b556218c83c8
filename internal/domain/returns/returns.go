// Package returns implements product returns against delivered orders and
// the refunds that close them.
package returns

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Status is the state of a return.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusReceived  Status = "RECEIVED"
	StatusRefunded  Status = "REFUNDED"
	StatusRejected  Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusRequested: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusReceived},
	StatusReceived:  {StatusRefunded},
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusRequested, StatusApproved, StatusReceived, StatusRefunded, StatusRejected:
		return st, nil
	}
	return "", apperr.Invalid("status", "unknown return status "+s)
}

// CanTransition reports whether a return may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// RefundStatus tracks the money side of a return.
type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundProcessed RefundStatus = "PROCESSED"
	RefundRejected  RefundStatus = "REJECTED"
)

// Reason explains why an item is returned.
type Reason string

const (
	ReasonDefective      Reason = "DEFECTIVE"
	ReasonWrongItem      Reason = "WRONG_ITEM"
	ReasonNotAsDescribed Reason = "NOT_AS_DESCRIBED"
	ReasonNoLongerNeeded Reason = "NO_LONGER_NEEDED"
	ReasonOther          Reason = "OTHER"
)

func (r Reason) valid() bool {
	switch r {
	case ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed, ReasonNoLongerNeeded, ReasonOther:
		return true
	}
	return false
}

// Condition describes the state of a returned item.
type Condition string

const (
	ConditionUnopened Condition = "UNOPENED"
	ConditionOpened   Condition = "OPENED"
	ConditionUsed     Condition = "USED"
	ConditionDamaged  Condition = "DAMAGED"
)

func (c Condition) valid() bool {
	switch c {
	case ConditionUnopened, ConditionOpened, ConditionUsed, ConditionDamaged:
		return true
	}
	return false
}

var (
	ErrPeriodExpired = apperr.New(apperr.KindExpired, apperr.CodeReturnPeriodExpired, "return period has expired")
	ErrInvalidReason = apperr.New(apperr.KindInvalidInput, apperr.CodeReturnInvalidReason, "return reason is required")
	// ErrInvalidQuantity is returned when a line returns more than was
	// ordered, counting earlier returns of the same order item.
	ErrInvalidQuantity = apperr.New(apperr.KindInvalidInput, apperr.CodeReturnInvalidQuantity, "invalid return quantity")
	// ErrInvalidTransition is returned for moves outside the return state machine.
	ErrInvalidTransition = apperr.New(apperr.KindInvalidStateTransition, apperr.CodeReturnInvalidTransition,
		"invalid return status transition")
	// ErrAlreadyProcessed is returned when refunding a return that is not
	// waiting for a refund.
	ErrAlreadyProcessed = apperr.New(apperr.KindInvalidStateTransition, apperr.CodeReturnAlreadyProcessed,
		"return is not awaiting a refund")
)

// NotFound returns the not-found error for return id.
func NotFound(id string) error {
	return apperr.NotFound("return", id)
}

// Item is a returned order line.
type Item struct {
	ID          string
	OrderItemID string
	ProductID   string
	Quantity    int
	Reason      Reason
	Condition   Condition
	Comments    string
}

// Return is a request to send items of a delivered order back.
type Return struct {
	ID           string
	OrderID      string
	UserID       string
	Status       Status
	Reason       string
	Items        []Item
	RefundAmount decimal.NullDecimal
	RefundStatus RefundStatus
	Notes        string
	ReturnDate   time.Time
	UpdatedAt    time.Time
}

// Repository provides return persistence.
type Repository interface {
	Create(ctx context.Context, r *Return) error
	Get(ctx context.Context, id string) (*Return, error)
	// GetForUpdate loads the return and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Return, error)
	ListByUser(ctx context.Context, userID string) ([]Return, error)
	ListByOrder(ctx context.Context, orderID string) ([]Return, error)
	// List returns all returns with the given status (any when empty).
	List(ctx context.Context, status Status) ([]Return, error)
	// Update persists status, refund fields, notes and update time.
	Update(ctx context.Context, r *Return) error
}
