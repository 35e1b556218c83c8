package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	ensureCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`

	getCartSQL = `SELECT id, user_id, updated_at FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY seq`

	setCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	removeCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	db *DB
}

// NewCartRepository returns a CartRepository that uses db.
func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetOrCreate returns the user's cart, inserting an empty one on first use.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	q := r.db.q(ctx)
	if _, err := q.Exec(ctx, ensureCartSQL, uuid.New().String(), userID); err != nil {
		return nil, fmt.Errorf("creating cart of %q: %w", userID, err)
	}

	var c cart.Cart
	if err := q.QueryRow(ctx, getCartSQL, userID).Scan(&c.ID, &c.UserID, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("getting cart of %q: %w", userID, err)
	}

	rows, err := q.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	c.Items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[cart.Item])
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return &c, nil
}

func (r *CartRepository) SetItem(ctx context.Context, cartID, productID string, quantity int) error {
	return r.modify(ctx, cartID, setCartItemSQL, cartID, productID, quantity)
}

func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	return r.modify(ctx, cartID, removeCartItemSQL, cartID, productID)
}

func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	return r.modify(ctx, cartID, clearCartSQL, cartID)
}

func (r *CartRepository) modify(ctx context.Context, cartID, sql string, args ...any) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		q := r.db.q(ctx)
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("modifying cart %q: %w", cartID, err)
		}
		if _, err := q.Exec(ctx, touchCartSQL, cartID); err != nil {
			return fmt.Errorf("touching cart %q: %w", cartID, err)
		}
		return nil
	})
}
