package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records order lifecycle counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	placed    metric.Int64Counter
	cancelled metric.Int64Counter
	payments  metric.Int64Counter
	revenue   metric.Float64Counter
}

// NewMetrics registers the order instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("storefront/order")

	var (
		m   Metrics
		err error
	)
	if m.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders created from carts")); err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	if m.cancelled, err = meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders cancelled with stock restored")); err != nil {
		return nil, errors.Wrap(err, "orders.cancelled")
	}
	if m.payments, err = meter.Int64Counter("orders.payments",
		metric.WithDescription("Payment attempts by outcome")); err != nil {
		return nil, errors.Wrap(err, "orders.payments")
	}
	if m.revenue, err = meter.Float64Counter("orders.revenue",
		metric.WithDescription("Order totals at placement"),
		metric.WithUnit("{currency}")); err != nil {
		return nil, errors.Wrap(err, "orders.revenue")
	}
	return &m, nil
}

func (m *Metrics) orderPlaced(ctx context.Context, o *Order) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("coupon", o.CouponCode != ""))
	m.placed.Add(ctx, 1, attrs)
	m.revenue.Add(ctx, o.Total.InexactFloat64(), attrs)
}

func (m *Metrics) orderCancelled(ctx context.Context) {
	if m == nil {
		return
	}
	m.cancelled.Add(ctx, 1)
}

func (m *Metrics) paymentAttempt(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}
