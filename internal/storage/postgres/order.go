package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/order"
)

const orderColumns = `o.id, o.user_id, o.shipping_address_id, o.billing_address_id, COALESCE(o.coupon_id, ''),
		o.coupon_code, o.subtotal, o.discount, o.total, o.status, o.payment_status, o.payment_method,
		o.payment_reference, o.refunded_amount, o.order_date, o.updated_at`

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, shipping_address_id, billing_address_id, coupon_id, coupon_code, subtotal, discount, total,
		 status, payment_status, payment_method, payment_reference, refunded_amount, order_date, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	createOrderItemSQL = `INSERT INTO order_items
		(id, order_id, product_id, product_name, quantity, unit_price, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = $1
		ORDER BY o.order_date DESC, o.id`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE ($1 = '' OR o.status = $1)
		ORDER BY o.order_date DESC, o.id`

	listOrdersBySellerSQL = `SELECT ` + orderColumns + ` FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.seller_id = $1)
		ORDER BY o.order_date DESC, o.id`

	listOrderItemsSQL = `SELECT order_id, id, product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	updateOrderSQL = `UPDATE orders SET status = $2, payment_status = $3, payment_reference = $4,
		refunded_amount = $5, updated_at = $6
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db *DB
}

// NewOrderRepository returns an OrderRepository that uses db.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order header and its items in one batch.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		batch.Queue(createOrderSQL,
			o.ID, o.UserID, o.ShippingAddressID, o.BillingAddressID, o.CouponID, o.CouponCode,
			o.Subtotal, o.Discount, o.Total, o.Status, o.PaymentStatus, o.PaymentMethod,
			o.PaymentReference, o.RefundedAmount, o.OrderDate, o.UpdatedAt)
		for i, it := range o.Items {
			batch.Queue(createOrderItemSQL,
				it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, i)
		}
		if err := r.db.q(ctx).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

func (r *OrderRepository) List(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL, string(status))
}

func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersBySellerSQL, sellerID)
}

func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus, o.PaymentReference, o.RefundedAmount, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.NotFound(o.ID)
	}
	return nil
}

func (r *OrderRepository) getOne(ctx context.Context, sql, id string) (*order.Order, error) {
	rows, err := r.db.q(ctx).Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.NotFound(id)
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, arg string) ([]order.Order, error) {
	rows, err := r.db.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.q(ctx).Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.ShippingAddressID, &o.BillingAddressID, &o.CouponID,
		&o.CouponCode, &o.Subtotal, &o.Discount, &o.Total, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.PaymentReference, &o.RefundedAmount, &o.OrderDate, &o.UpdatedAt,
	)
	return o, err
}
