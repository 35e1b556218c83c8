package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Applier resolves a coupon code against a purchase amount at a given time.
type Applier interface {
	ApplyAt(ctx context.Context, code string, amount decimal.Decimal, now time.Time) (*Application, error)
}

var _ Applier = (*Service)(nil)

// Service implements coupon administration and application.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a coupon Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns all coupons.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.repo.List(ctx)
}

// GetByCode returns the coupon with the given code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	return s.repo.GetByCode(ctx, code)
}

// Create validates and stores a new coupon.
func (s *Service) Create(ctx context.Context, in Input) (*Coupon, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, in.Code, ""); err != nil {
		return nil, err
	}

	c, err := New(in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// Update replaces a coupon definition.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Coupon, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Code != in.Code {
		if err := s.ensureCodeFree(ctx, in.Code, id); err != nil {
			return nil, err
		}
	}

	in.apply(c)
	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Activate enables a coupon. An expired coupon cannot be activated.
func (s *Service) Activate(ctx context.Context, id string) (*Coupon, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if now.After(c.ValidTo) {
		return nil, ErrCouponExpired.Withf("cannot activate coupon %s: it expired on %s",
			c.Code, c.ValidTo.Format(time.DateOnly))
	}
	return s.setActive(ctx, c, true, now)
}

// Deactivate disables a coupon.
func (s *Service) Deactivate(ctx context.Context, id string) (*Coupon, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setActive(ctx, c, false, s.now())
}

// Delete removes a coupon.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Apply computes the discount a coupon grants on amount right now.
func (s *Service) Apply(ctx context.Context, code string, amount decimal.Decimal) (*Application, error) {
	return s.ApplyAt(ctx, code, amount, s.now())
}

// ApplyAt computes the discount a coupon grants on amount at now, or returns
// the most specific reason it does not apply.
func (s *Service) ApplyAt(ctx context.Context, code string, amount decimal.Decimal, now time.Time) (*Application, error) {
	if amount.IsNegative() {
		return nil, apperr.Invalid("cartTotal", "amount must not be negative")
	}
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.Check(now, amount); err != nil {
		return nil, err
	}

	discount := c.CalculateDiscount(amount)
	total := amount.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return &Application{
		Coupon:   c,
		Discount: discount,
		NewTotal: total.Round(2),
	}, nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.repo.GetByCode(ctx, code)
	switch {
	case errors.Is(err, ErrInvalidCoupon):
		return nil
	case err != nil:
		return errors.Wrap(err, "lookup coupon")
	case existing.ID != selfID:
		return ErrDuplicateCode.Withf("coupon code %s already exists", code)
	}
	return nil
}

func (s *Service) setActive(ctx context.Context, c *Coupon, active bool, now time.Time) (*Coupon, error) {
	c.IsActive = active
	c.UpdatedAt = now
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}
