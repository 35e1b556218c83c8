package memory

import (
	"context"

	"github.com/xenking/storefront/internal/domain/shipment"
)

var _ shipment.Repository = (*Shipments)(nil)

// Shipments stores shipments and their tracking history.
type Shipments struct {
	s *Store
}

func (r *Shipments) Create(ctx context.Context, sh *shipment.Shipment) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.shipments {
			if existing.OrderID == sh.OrderID {
				return shipment.ErrAlreadyExists
			}
		}
		st.shipments[sh.ID] = copyShipment(*sh)
		return nil
	})
}

func (r *Shipments) Get(ctx context.Context, id string) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	err := r.s.do(ctx, func(st *state) error {
		cur, ok := st.shipments[id]
		if !ok {
			return shipment.NotFound(id)
		}
		sh = copyShipment(cur)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (r *Shipments) GetForUpdate(ctx context.Context, id string) (*shipment.Shipment, error) {
	return r.Get(ctx, id)
}

func (r *Shipments) GetByOrder(ctx context.Context, orderID string) (*shipment.Shipment, error) {
	var (
		sh    shipment.Shipment
		found bool
	)
	err := r.s.do(ctx, func(st *state) error {
		for _, cur := range st.shipments {
			if cur.OrderID == orderID {
				sh, found = copyShipment(cur), true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, shipment.NotFound("for order " + orderID)
	}
	return &sh, nil
}

func (r *Shipments) Update(ctx context.Context, sh *shipment.Shipment) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.shipments[sh.ID]
		if !ok {
			return shipment.NotFound(sh.ID)
		}
		updates := cur.Updates
		cur = copyShipment(*sh)
		cur.Updates = updates
		st.shipments[sh.ID] = cur
		return nil
	})
}

func (r *Shipments) AddUpdate(ctx context.Context, shipmentID string, u shipment.Update) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.shipments[shipmentID]
		if !ok {
			return shipment.NotFound(shipmentID)
		}
		cur = copyShipment(cur)
		cur.Updates = append(cur.Updates, u)
		st.shipments[shipmentID] = cur
		return nil
	})
}
