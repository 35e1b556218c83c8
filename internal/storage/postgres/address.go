package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/address"
)

const addressColumns = `id, user_id, name, recipient_name, line1, line2, city, state, postal_code, country, phone,
		is_default, created_at, updated_at`

const (
	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY created_at, id`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	createAddressSQL = `INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateAddressSQL = `UPDATE addresses SET name = $3, recipient_name = $4, line1 = $5, line2 = $6, city = $7,
		state = $8, postal_code = $9, country = $10, phone = $11, is_default = $12, updated_at = $13
		WHERE id = $1 AND user_id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`

	addressInUseSQL = `SELECT EXISTS (
		SELECT 1 FROM orders WHERE shipping_address_id = $1 OR billing_address_id = $1)`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	db *DB
}

// NewAddressRepository returns an AddressRepository that uses db.
func NewAddressRepository(db *DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.db.q(ctx).Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[address.Address])
}

func (r *AddressRepository) Get(ctx context.Context, userID, id string) (*address.Address, error) {
	rows, err := r.db.q(ctx).Query(ctx, getAddressSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[address.Address])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.NotFound(id)
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &a, nil
}

func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	_, err := r.db.q(ctx).Exec(ctx, createAddressSQL,
		a.ID, a.UserID, a.Name, a.RecipientName, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		a.Phone, a.IsDefault, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating address %q: %w", a.ID, err)
	}
	return nil
}

func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateAddressSQL,
		a.ID, a.UserID, a.Name, a.RecipientName, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		a.Phone, a.IsDefault, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating address %q: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return address.NotFound(a.ID)
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.q(ctx).Exec(ctx, deleteAddressSQL, id, userID)
	if err != nil {
		return fmt.Errorf("deleting address %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.NotFound(id)
	}
	return nil
}

func (r *AddressRepository) ClearDefault(ctx context.Context, userID string) error {
	if _, err := r.db.q(ctx).Exec(ctx, clearDefaultAddressSQL, userID); err != nil {
		return fmt.Errorf("clearing default address of %q: %w", userID, err)
	}
	return nil
}

func (r *AddressRepository) InUse(ctx context.Context, id string) (bool, error) {
	var used bool
	if err := r.db.q(ctx).QueryRow(ctx, addressInUseSQL, id).Scan(&used); err != nil {
		return false, fmt.Errorf("checking address %q usage: %w", id, err)
	}
	return used, nil
}
