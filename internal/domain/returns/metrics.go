package returns

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records return counters. A nil *Metrics records nothing.
type Metrics struct {
	received metric.Int64Counter
	refunds  metric.Int64Counter
	refunded metric.Float64Counter
}

// NewMetrics registers the return instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("storefront/returns")

	var (
		m   Metrics
		err error
	)
	if m.received, err = meter.Int64Counter("returns.items_restocked",
		metric.WithDescription("Units put back in stock by received returns")); err != nil {
		return nil, errors.Wrap(err, "returns.items_restocked")
	}
	if m.refunds, err = meter.Int64Counter("returns.refunds"); err != nil {
		return nil, errors.Wrap(err, "returns.refunds")
	}
	if m.refunded, err = meter.Float64Counter("returns.refunded_amount",
		metric.WithUnit("{currency}")); err != nil {
		return nil, errors.Wrap(err, "returns.refunded_amount")
	}
	return &m, nil
}

func (m *Metrics) returnReceived(ctx context.Context, r *Return) {
	if m == nil {
		return
	}
	var units int64
	for _, it := range r.Items {
		units += int64(it.Quantity)
	}
	m.received.Add(ctx, units)
}

func (m *Metrics) refundProcessed(ctx context.Context, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.refunds.Add(ctx, 1)
	m.refunded.Add(ctx, amount.InexactFloat64())
}
