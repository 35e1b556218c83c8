// Package shipment tracks order deliveries and propagates delivery progress
// to the order.
package shipment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Status is the carrier-reported state of a shipment.
type Status string

const (
	StatusPreparing Status = "PREPARING"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusDelayed   Status = "DELAYED"
	StatusReturned  Status = "RETURNED"
)

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPreparing, StatusInTransit, StatusDelivered, StatusDelayed, StatusReturned:
		return st, nil
	}
	return "", apperr.Invalid("status", "unknown shipment status "+s)
}

// ErrAlreadyExists is returned when an order already has a shipment.
var ErrAlreadyExists = apperr.New(apperr.KindConflict, apperr.CodeShipmentExists, "shipment already exists for order")

// NotFound returns the not-found error for shipment id.
func NotFound(id string) error {
	return apperr.NotFound("shipment", id)
}

// Update is an append-only tracking event.
type Update struct {
	ID          string
	Status      Status
	Location    string
	Description string
	Timestamp   time.Time
}

// Shipment is the delivery of one order.
type Shipment struct {
	ID                string
	OrderID           string
	Carrier           string
	TrackingNumber    string
	Status            Status
	ShippingCost      decimal.Decimal
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	Updates           []Update
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository provides shipment persistence.
type Repository interface {
	// Create stores the shipment. It returns ErrAlreadyExists when the order
	// already has one.
	Create(ctx context.Context, s *Shipment) error
	Get(ctx context.Context, id string) (*Shipment, error)
	// GetForUpdate loads the shipment and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Shipment, error)
	// GetByOrder returns the shipment of an order, or a not-found error.
	GetByOrder(ctx context.Context, orderID string) (*Shipment, error)
	// Update persists carrier, tracking number, status and delivery dates.
	Update(ctx context.Context, s *Shipment) error
	// AddUpdate appends a tracking event.
	AddUpdate(ctx context.Context, shipmentID string, u Update) error
}
