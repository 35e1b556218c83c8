// Package review manages customer ratings and comments on products.
package review

import (
	"context"
	"strings"
	"time"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// NotFound returns the not-found error for review id.
func NotFound(id string) error {
	return apperr.NotFound("review", id)
}

// Review is one user's rating of a product.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input holds the editable fields of a review.
type Input struct {
	Rating  int
	Comment string
}

// Validate checks the rating range and that a comment is present.
func (in Input) Validate() error {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return apperr.Invalid("rating", "rating must be between 1 and 5")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return apperr.Invalid("comment", "comment cannot be empty")
	}
	return nil
}

// Repository provides review persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Review, error)
	// ListByProduct returns the product's reviews, newest first.
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	Create(ctx context.Context, r *Review) error
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id string) error
}
