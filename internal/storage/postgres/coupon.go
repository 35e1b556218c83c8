package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/coupon"
)

const couponColumns = `id, code, description, discount_amount, discount_percent, min_purchase_amount,
		valid_from, valid_to, is_active, created_at, updated_at`

const (
	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY code`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	createCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateCouponSQL = `UPDATE coupons SET code = $2, description = $3, discount_amount = $4,
		discount_percent = $5, min_purchase_amount = $6, valid_from = $7, valid_to = $8, is_active = $9,
		updated_at = $10
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	// Bulk import skips codes that already exist.
	importCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code) DO NOTHING`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	db *DB
}

// NewCouponRepository returns a CouponRepository that uses db.
func NewCouponRepository(db *DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.db.q(ctx).Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[coupon.Coupon])
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := r.getOne(ctx, getCouponSQL, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("coupon", id)
	}
	return c, err
}

// GetByCode returns coupon.ErrInvalidCoupon when no coupon has the code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, err := r.getOne(ctx, getCouponByCodeSQL, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrInvalidCoupon
	}
	return c, err
}

func (r *CouponRepository) getOne(ctx context.Context, sql, arg string) (*coupon.Coupon, error) {
	rows, err := r.db.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", arg, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[coupon.Coupon])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("getting coupon %q: %w", arg, err)
	}
	return &c, nil
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.db.q(ctx).Exec(ctx, createCouponSQL, couponArgs(c)...)
	if err != nil {
		if isUniqueViolation(err, "coupons_code_key") {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Import inserts c unless its code is taken, reporting whether it was
// inserted.
func (r *CouponRepository) Import(ctx context.Context, c *coupon.Coupon) (bool, error) {
	tag, err := r.db.q(ctx).Exec(ctx, importCouponSQL, couponArgs(c)...)
	if err != nil {
		return false, fmt.Errorf("importing coupon %q: %w", c.Code, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateCouponSQL,
		c.ID, c.Code, c.Description, c.DiscountAmount, c.DiscountPercent, c.MinPurchaseAmount,
		c.ValidFrom, c.ValidTo, c.IsActive, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "coupons_code_key") {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("coupon", c.ID)
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.q(ctx).Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("coupon", id)
	}
	return nil
}

func couponArgs(c *coupon.Coupon) []any {
	return []any{
		c.ID, c.Code, c.Description, c.DiscountAmount, c.DiscountPercent, c.MinPurchaseAmount,
		c.ValidFrom, c.ValidTo, c.IsActive, c.CreatedAt, c.UpdatedAt,
	}
}
