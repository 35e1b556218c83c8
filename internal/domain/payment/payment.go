// Package payment defines the payment gateway boundary and a simulated
// gateway for development and tests.
package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

var (
	// ErrDeclined is returned when the gateway refuses a charge or refund.
	ErrDeclined = errors.New("payment declined")
	// ErrUnknownReference is returned when refunding a payment the gateway
	// never processed.
	ErrUnknownReference = errors.New("unknown payment reference")
)

// ChargeRequest asks the gateway to collect an amount for an order.
type ChargeRequest struct {
	OrderID string
	Amount  decimal.Decimal
	Method  string
}

// RefundRequest asks the gateway to return part or all of a captured payment.
type RefundRequest struct {
	OrderID   string
	Reference string
	Amount    decimal.Decimal
}

// Receipt confirms a processed gateway operation.
type Receipt struct {
	Reference   string
	Amount      decimal.Decimal
	ProcessedAt time.Time
}

// Gateway is an external payment processor.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)
	Refund(ctx context.Context, req RefundRequest) (*Receipt, error)
}

var _ Gateway = (*Simulated)(nil)

// Simulated is an in-process Gateway. It approves every charge except those
// using a declined payment method, and only refunds what it has captured.
type Simulated struct {
	declined map[string]struct{}
	now      func() time.Time

	mu       sync.Mutex
	captured map[string]decimal.Decimal
}

// NewSimulated creates a Simulated gateway that declines the given payment
// methods (case-insensitive).
func NewSimulated(declineMethods []string) *Simulated {
	declined := make(map[string]struct{}, len(declineMethods))
	for _, m := range declineMethods {
		declined[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}
	return &Simulated{
		declined: declined,
		now:      time.Now,
		captured: make(map[string]decimal.Decimal),
	}
}

// Charge captures req.Amount.
func (g *Simulated) Charge(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, errors.Wrap(ErrDeclined, "amount must be positive")
	}
	if _, ok := g.declined[strings.ToUpper(req.Method)]; ok {
		return nil, errors.Wrapf(ErrDeclined, "method %s", req.Method)
	}

	ref := "pay_" + ulid.Make().String()
	g.mu.Lock()
	g.captured[ref] = req.Amount
	g.mu.Unlock()

	return &Receipt{Reference: ref, Amount: req.Amount, ProcessedAt: g.now()}, nil
}

// Refund returns req.Amount from a captured payment.
func (g *Simulated) Refund(ctx context.Context, req RefundRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, errors.Wrap(ErrDeclined, "refund amount must be positive")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	remaining, ok := g.captured[req.Reference]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownReference, "reference %q", req.Reference)
	}
	if req.Amount.GreaterThan(remaining) {
		return nil, errors.Wrapf(ErrDeclined, "refund %s exceeds captured %s", req.Amount, remaining)
	}
	g.captured[req.Reference] = remaining.Sub(req.Amount)

	return &Receipt{
		Reference:   "ref_" + ulid.Make().String(),
		Amount:      req.Amount,
		ProcessedAt: g.now(),
	}, nil
}
