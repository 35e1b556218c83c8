package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/shipment"
)

const shipmentColumns = `id, order_id, carrier, tracking_number, status, shipping_cost, estimated_delivery,
		actual_delivery, created_at, updated_at`

const (
	createShipmentSQL = `INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getShipmentSQL = `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`

	getShipmentForUpdateSQL = getShipmentSQL + ` FOR UPDATE`

	getShipmentByOrderSQL = `SELECT ` + shipmentColumns + ` FROM shipments WHERE order_id = $1`

	listShipmentUpdatesSQL = `SELECT id, status, location, description, ts
		FROM shipment_updates WHERE shipment_id = $1 ORDER BY seq`

	updateShipmentSQL = `UPDATE shipments SET carrier = $2, tracking_number = $3, status = $4,
		shipping_cost = $5, estimated_delivery = $6, actual_delivery = $7, updated_at = $8
		WHERE id = $1`

	addShipmentUpdateSQL = `INSERT INTO shipment_updates (id, shipment_id, status, location, description, ts)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ shipment.Repository = (*ShipmentRepository)(nil)

// ShipmentRepository implements shipment.Repository backed by PostgreSQL.
type ShipmentRepository struct {
	db *DB
}

// NewShipmentRepository returns a ShipmentRepository that uses db.
func NewShipmentRepository(db *DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

func (r *ShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	_, err := r.db.q(ctx).Exec(ctx, createShipmentSQL,
		s.ID, s.OrderID, s.Carrier, s.TrackingNumber, s.Status, s.ShippingCost, s.EstimatedDelivery,
		s.ActualDelivery, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "shipments_order_key") {
			return shipment.ErrAlreadyExists
		}
		return fmt.Errorf("creating shipment %q: %w", s.ID, err)
	}
	return nil
}

func (r *ShipmentRepository) Get(ctx context.Context, id string) (*shipment.Shipment, error) {
	return r.getOne(ctx, getShipmentSQL, id, id)
}

func (r *ShipmentRepository) GetForUpdate(ctx context.Context, id string) (*shipment.Shipment, error) {
	return r.getOne(ctx, getShipmentForUpdateSQL, id, id)
}

func (r *ShipmentRepository) GetByOrder(ctx context.Context, orderID string) (*shipment.Shipment, error) {
	return r.getOne(ctx, getShipmentByOrderSQL, orderID, "for order "+orderID)
}

func (r *ShipmentRepository) Update(ctx context.Context, s *shipment.Shipment) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateShipmentSQL,
		s.ID, s.Carrier, s.TrackingNumber, s.Status, s.ShippingCost, s.EstimatedDelivery, s.ActualDelivery,
		s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating shipment %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return shipment.NotFound(s.ID)
	}
	return nil
}

func (r *ShipmentRepository) AddUpdate(ctx context.Context, shipmentID string, u shipment.Update) error {
	_, err := r.db.q(ctx).Exec(ctx, addShipmentUpdateSQL,
		u.ID, shipmentID, u.Status, u.Location, u.Description, u.Timestamp)
	if err != nil {
		return fmt.Errorf("adding update to shipment %q: %w", shipmentID, err)
	}
	return nil
}

// getOne loads a shipment with its tracking history. label names the
// shipment in the not-found error.
func (r *ShipmentRepository) getOne(ctx context.Context, sql, arg, label string) (*shipment.Shipment, error) {
	q := r.db.q(ctx)
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting shipment %s: %w", label, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanShipment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipment.NotFound(label)
		}
		return nil, fmt.Errorf("getting shipment %s: %w", label, err)
	}

	rows, err = q.Query(ctx, listShipmentUpdatesSQL, s.ID)
	if err != nil {
		return nil, fmt.Errorf("listing shipment updates: %w", err)
	}
	s.Updates, err = pgx.CollectRows(rows, pgx.RowToStructByPos[shipment.Update])
	if err != nil {
		return nil, fmt.Errorf("listing shipment updates: %w", err)
	}
	return &s, nil
}

func scanShipment(row pgx.CollectableRow) (shipment.Shipment, error) {
	var s shipment.Shipment
	err := row.Scan(
		&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &s.Status, &s.ShippingCost, &s.EstimatedDelivery,
		&s.ActualDelivery, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
