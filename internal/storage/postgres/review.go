package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/review"
)

const reviewColumns = `id, product_id, user_id, rating, comment, created_at, updated_at`

const (
	getReviewSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	listProductReviewsSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1
		ORDER BY created_at DESC, id`

	createReviewSQL = `INSERT INTO reviews (` + reviewColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateReviewSQL = `UPDATE reviews SET rating = $2, comment = $3, updated_at = $4 WHERE id = $1`

	deleteReviewSQL = `DELETE FROM reviews WHERE id = $1`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository returns a ReviewRepository that uses db.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (*review.Review, error) {
	rows, err := r.db.q(ctx).Query(ctx, getReviewSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}
	rv, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[review.Review])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, review.NotFound(id)
		}
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}
	return &rv, nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]review.Review, error) {
	rows, err := r.db.q(ctx).Query(ctx, listProductReviewsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[review.Review])
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.db.q(ctx).Exec(ctx, createReviewSQL,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating review %q: %w", rv.ID, err)
	}
	return nil
}

func (r *ReviewRepository) Update(ctx context.Context, rv *review.Review) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateReviewSQL, rv.ID, rv.Rating, rv.Comment, rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating review %q: %w", rv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return review.NotFound(rv.ID)
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.q(ctx).Exec(ctx, deleteReviewSQL, id)
	if err != nil {
		return fmt.Errorf("deleting review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.NotFound(id)
	}
	return nil
}
