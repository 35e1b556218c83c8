package shipment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/txn"
)

// OrderStore is the part of order persistence shipments need.
type OrderStore interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	GetForUpdate(ctx context.Context, id string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
}

// CreateRequest holds the input for creating a shipment.
type CreateRequest struct {
	OrderID           string
	Carrier           string
	TrackingNumber    string
	ShippingCost      decimal.Decimal
	EstimatedDelivery *time.Time
}

// Service implements shipment tracking.
type Service struct {
	tx        txn.Runner
	shipments Repository
	orders    OrderStore
	now       func() time.Time
}

// NewService creates a shipment Service.
func NewService(tx txn.Runner, shipments Repository, orders OrderStore) *Service {
	return &Service{tx: tx, shipments: shipments, orders: orders, now: time.Now}
}

// Create opens the single shipment of an order. A pending order moves to
// PROCESSING.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Shipment, error) {
	if strings.TrimSpace(req.Carrier) == "" {
		return nil, apperr.Invalid("carrier", "carrier is required")
	}
	if req.ShippingCost.IsNegative() {
		return nil, apperr.Invalid("shippingCost", "shipping cost must not be negative")
	}

	var sh *Shipment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.Status == order.StatusCancelled {
			return order.ErrInvalidStatus.Withf("cannot ship cancelled order %s", o.ID)
		}
		if _, err := s.shipments.GetByOrder(ctx, o.ID); err == nil {
			return ErrAlreadyExists.Withf("order %s already has a shipment", o.ID)
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return errors.Wrap(err, "lookup shipment")
		}

		now := s.now()
		sh = &Shipment{
			ID:                uuid.New().String(),
			OrderID:           o.ID,
			Carrier:           strings.TrimSpace(req.Carrier),
			TrackingNumber:    strings.TrimSpace(req.TrackingNumber),
			Status:            StatusPreparing,
			ShippingCost:      req.ShippingCost.Round(2),
			EstimatedDelivery: req.EstimatedDelivery,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.shipments.Create(ctx, sh); err != nil {
			return err
		}
		if err := s.appendUpdate(ctx, sh, Update{
			Status:      StatusPreparing,
			Description: "Shipment created",
			Timestamp:   now,
		}); err != nil {
			return err
		}

		if o.Status == order.StatusPending {
			o.Status = order.StatusProcessing
			o.UpdatedAt = now
			return s.orders.Update(ctx, o)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create shipment")
	}
	return sh, nil
}

// Get returns a shipment by id.
func (s *Service) Get(ctx context.Context, id string) (*Shipment, error) {
	return s.shipments.Get(ctx, id)
}

// GetByOrder returns the shipment of an order visible to actor.
func (s *Service) GetByOrder(ctx context.Context, actor auth.Identity, orderID string) (*Shipment, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, order.NotFound(orderID)
	}
	return s.shipments.GetByOrder(ctx, orderID)
}

// UpdateStatus records a carrier status report. IN_TRANSIT advances the order
// to SHIPPED and DELIVERED marks the order delivered and stamps the actual
// delivery date.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, location, description string) (*Shipment, error) {
	var sh *Shipment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sh, err = s.shipments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		o, err := s.orders.GetForUpdate(ctx, sh.OrderID)
		if err != nil {
			return err
		}
		if o.Status == order.StatusCancelled {
			return order.ErrInvalidStatus.Withf("order %s is cancelled", o.ID)
		}

		now := s.now()
		sh.Status = status
		sh.UpdatedAt = now
		if status == StatusDelivered {
			delivered := now
			sh.ActualDelivery = &delivered
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		if err := s.appendUpdate(ctx, sh, Update{
			Status:      status,
			Location:    location,
			Description: description,
			Timestamp:   now,
		}); err != nil {
			return err
		}

		target := orderStatusFor(status)
		if target == "" || !o.Status.Before(target) {
			return nil
		}
		o.Status = target
		o.UpdatedAt = now
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update shipment status")
	}
	return sh, nil
}

// AddTrackingNumber sets the carrier tracking number.
func (s *Service) AddTrackingNumber(ctx context.Context, id, trackingNumber string) (*Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, apperr.Invalid("trackingNumber", "tracking number is required")
	}

	var sh *Shipment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sh, err = s.shipments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		sh.TrackingNumber = trackingNumber
		sh.UpdatedAt = now
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		return s.appendUpdate(ctx, sh, Update{
			Status:      sh.Status,
			Description: "Tracking number added: " + trackingNumber,
			Timestamp:   now,
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "add tracking number")
	}
	return sh, nil
}

func (s *Service) appendUpdate(ctx context.Context, sh *Shipment, u Update) error {
	u.ID = uuid.New().String()
	if err := s.shipments.AddUpdate(ctx, sh.ID, u); err != nil {
		return errors.Wrap(err, "add shipment update")
	}
	sh.Updates = append(sh.Updates, u)
	return nil
}

// orderStatusFor maps a shipment status to the order status it implies.
func orderStatusFor(st Status) order.Status {
	switch st {
	case StatusInTransit:
		return order.StatusShipped
	case StatusDelivered:
		return order.StatusDelivered
	}
	return ""
}
