// Package apperr defines the error taxonomy shared by all domain services.
//
// Every business failure is an *Error carrying a Kind (how the caller should
// react) and a stable machine-readable Code. Two errors are considered equal
// by errors.Is when their kinds and codes match, so a detailed error such as
// "insufficient stock for product X" still matches its sentinel.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a domain error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
	KindInsufficientStock
	KindInvalidStateTransition
	KindExpired
	KindUnauthenticated
	KindForbidden
	KindPaymentFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidStateTransition:
		return "invalid_state_transition"
	case KindExpired:
		return "expired"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindPaymentFailed:
		return "payment_failed"
	default:
		return "internal"
	}
}

// Machine-readable error codes exposed to API clients.
const (
	CodeInternal     = "ERR_INTERNAL"
	CodeValidation   = "ERR_VALIDATION"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
	CodeForbidden    = "ERR_FORBIDDEN"
	CodeNotFound     = "ERR_RESOURCE_NOT_FOUND"
	CodeDuplicate    = "ERR_DUPLICATE_RESOURCE"

	CodeOrderEmptyCart         = "ERR_ORDER_EMPTY_CART"
	CodeOrderInsufficientStock = "ERR_ORDER_INSUFFICIENT_STOCK"
	CodeOrderInvalidStatus     = "ERR_ORDER_INVALID_STATUS"
	CodeOrderPaymentFailed     = "ERR_ORDER_PAYMENT_FAILED"
	CodeOrderCancelLimit       = "ERR_ORDER_CANCEL_LIMIT"

	CodeAddressInvalid          = "ERR_ADDRESS_INVALID"
	CodeAddressDeleteConstraint = "ERR_ADDRESS_DELETE_CONSTRAINT"

	CodeReturnPeriodExpired     = "ERR_RETURN_PERIOD_EXPIRED"
	CodeReturnInvalidReason     = "ERR_RETURN_INVALID_REASON"
	CodeReturnAlreadyProcessed  = "ERR_RETURN_ALREADY_PROCESSED"
	CodeReturnInvalidQuantity   = "ERR_RETURN_INVALID_QUANTITY"
	CodeReturnInvalidTransition = "ERR_RETURN_INVALID_TRANSITION"

	CodeCouponExpired         = "ERR_COUPON_EXPIRED"
	CodeCouponInvalid         = "ERR_COUPON_INVALID"
	CodeCouponMinAmountNotMet = "ERR_COUPON_MIN_AMOUNT_NOT_MET"
	CodeCouponDuplicateCode   = "ERR_COUPON_DUPLICATE_CODE"
	CodeCouponInvalidDiscount = "ERR_COUPON_INVALID_DISCOUNT"
	CodeCouponInvalidDates    = "ERR_COUPON_INVALID_DATES"

	CodeShipmentExists = "ERR_SHIPMENT_EXISTS"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Field names the offending input field, if any.
	Field string
}

// New creates an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is reports whether target is an *Error with the same kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// WithField returns a copy of e bound to the named input field.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// NotFound returns a not-found error for the named entity.
func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// Invalid returns a validation error for a single field.
func Invalid(field, message string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an authorization failure.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// From extracts the *Error from err's chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal if err is not classified.
func KindOf(err error) Kind {
	if e, ok := From(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, or CodeInternal if err is not classified.
func CodeOf(err error) string {
	if e, ok := From(err); ok {
		return e.Code
	}
	return CodeInternal
}
