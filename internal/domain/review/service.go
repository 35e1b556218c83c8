package review

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/txn"
)

// ProductLookup resolves the product a review is about.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Service implements product reviews. Anyone may read reviews; only the
// author or an admin may change or remove one.
type Service struct {
	tx       txn.Runner
	repo     Repository
	products ProductLookup
	now      func() time.Time
}

// NewService creates a review Service.
func NewService(tx txn.Runner, repo Repository, products ProductLookup) *Service {
	return &Service{tx: tx, repo: repo, products: products, now: time.Now}
}

// ListForProduct returns the reviews of an existing product.
func (s *Service) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}

// Create records userID's review of a product.
func (s *Service) Create(ctx context.Context, userID, productID string, in Input) (*Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	now := s.now()
	r := &Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create review")
	}
	return r, nil
}

// Update replaces the rating and comment of a review.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id string, in Input) (*Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var r *Review
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if r, err = s.modifiable(ctx, actor, id); err != nil {
			return err
		}
		r.Rating = in.Rating
		r.Comment = strings.TrimSpace(in.Comment)
		r.UpdatedAt = s.now()
		return s.repo.Update(ctx, r)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update review")
	}
	return r, nil
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.modifiable(ctx, actor, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
}

func (s *Service) modifiable(ctx context.Context, actor auth.Identity, id string) (*Review, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only the author or an admin can change a review")
	}
	return r, nil
}
