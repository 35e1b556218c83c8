package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the purchase amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed amount capped at the purchase amount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a code is unknown, inactive or not
	// yet valid.
	ErrInvalidCoupon = apperr.New(apperr.KindInvalidInput, apperr.CodeCouponInvalid, "invalid coupon code")
	// ErrCouponExpired is returned when a coupon's validity window has ended.
	ErrCouponExpired = apperr.New(apperr.KindExpired, apperr.CodeCouponExpired, "coupon has expired")
	// ErrMinAmountNotMet is returned when the purchase is below the coupon minimum.
	ErrMinAmountNotMet = apperr.New(apperr.KindInvalidInput, apperr.CodeCouponMinAmountNotMet,
		"purchase amount is below the coupon minimum")
	// ErrDuplicateCode is returned when another coupon already uses the code.
	ErrDuplicateCode = apperr.New(apperr.KindConflict, apperr.CodeCouponDuplicateCode, "coupon code already exists")
	// ErrInvalidDiscount is returned for malformed discount settings.
	ErrInvalidDiscount = apperr.New(apperr.KindInvalidInput, apperr.CodeCouponInvalidDiscount, "invalid discount")
	// ErrInvalidDates is returned when validFrom is after validTo.
	ErrInvalidDates = apperr.New(apperr.KindInvalidInput, apperr.CodeCouponInvalidDates,
		"valid from date must not be after valid to date")
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount code. Exactly one of DiscountAmount and
// DiscountPercent is set.
type Coupon struct {
	ID                string
	Code              string
	Description       string
	DiscountAmount    decimal.NullDecimal
	DiscountPercent   decimal.NullDecimal
	MinPurchaseAmount decimal.NullDecimal
	ValidFrom         time.Time
	ValidTo           time.Time
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Type returns the discount strategy of the coupon.
func (c *Coupon) Type() DiscountType {
	if c.DiscountPercent.Valid {
		return DiscountPercentage
	}
	return DiscountFixed
}

// IsValid reports whether the coupon can be applied to amount at now.
func (c *Coupon) IsValid(now time.Time, amount decimal.Decimal) bool {
	return c.Check(now, amount) == nil
}

// Check returns the most specific reason the coupon cannot be applied to
// amount at now, or nil.
func (c *Coupon) Check(now time.Time, amount decimal.Decimal) error {
	switch {
	case !c.IsActive:
		return ErrInvalidCoupon
	case now.After(c.ValidTo):
		return ErrCouponExpired
	case now.Before(c.ValidFrom):
		return ErrInvalidCoupon.Withf("coupon %s is not valid yet", c.Code)
	case c.MinPurchaseAmount.Valid && amount.LessThan(c.MinPurchaseAmount.Decimal):
		return ErrMinAmountNotMet.Withf("purchase amount must be at least %s", c.MinPurchaseAmount.Decimal.StringFixed(2))
	}
	return nil
}

// CalculateDiscount returns the discount for a purchase of amount. A fixed
// discount never exceeds the purchase amount.
func (c *Coupon) CalculateDiscount(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if c.DiscountPercent.Valid {
		return amount.Mul(c.DiscountPercent.Decimal).Div(hundred).Round(2)
	}
	if c.DiscountAmount.Valid {
		return decimal.Min(c.DiscountAmount.Decimal, amount).Round(2)
	}
	return decimal.Zero
}

// Input holds the editable fields of a coupon.
type Input struct {
	Code              string
	Description       string
	DiscountAmount    decimal.NullDecimal
	DiscountPercent   decimal.NullDecimal
	MinPurchaseAmount decimal.NullDecimal
	ValidFrom         time.Time
	ValidTo           time.Time
	IsActive          bool
}

// Validate checks the coupon definition independently of storage.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return apperr.Invalid("code", "code is required")
	}
	switch {
	case in.DiscountAmount.Valid && in.DiscountPercent.Valid:
		return ErrInvalidDiscount.Withf("only one of discount amount and discount percent may be set")
	case !in.DiscountAmount.Valid && !in.DiscountPercent.Valid:
		return ErrInvalidDiscount.Withf("either discount amount or discount percent is required")
	case in.DiscountPercent.Valid &&
		(!in.DiscountPercent.Decimal.IsPositive() || in.DiscountPercent.Decimal.GreaterThan(hundred)):
		return ErrInvalidDiscount.Withf("discount percent must be greater than 0 and at most 100").
			WithField("discountPercent")
	case in.DiscountAmount.Valid && !in.DiscountAmount.Decimal.IsPositive():
		return ErrInvalidDiscount.Withf("discount amount must be greater than 0").WithField("discountAmount")
	case in.MinPurchaseAmount.Valid && in.MinPurchaseAmount.Decimal.IsNegative():
		return ErrInvalidDiscount.Withf("minimum purchase amount must not be negative").
			WithField("minPurchaseAmount")
	}
	if in.ValidFrom.IsZero() || in.ValidTo.IsZero() {
		return ErrInvalidDates.Withf("valid from and valid to dates are required")
	}
	if in.ValidFrom.After(in.ValidTo) {
		return ErrInvalidDates
	}
	return nil
}

// New validates in and builds a coupon with a fresh id.
func New(in Input, now time.Time) (*Coupon, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &Coupon{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(c)
	return c, nil
}

func (in Input) apply(c *Coupon) {
	c.Code = strings.TrimSpace(in.Code)
	c.Description = in.Description
	c.DiscountAmount = in.DiscountAmount
	c.DiscountPercent = in.DiscountPercent
	c.MinPurchaseAmount = in.MinPurchaseAmount
	c.ValidFrom = in.ValidFrom
	c.ValidTo = in.ValidTo
	c.IsActive = in.IsActive
}

// Application is the result of applying a coupon to an amount.
type Application struct {
	Coupon   *Coupon
	Discount decimal.Decimal
	NewTotal decimal.Decimal
}

// Repository provides coupon persistence. Codes are case-sensitive.
type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	// GetByCode returns ErrInvalidCoupon when no coupon has the code.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	// Create returns ErrDuplicateCode when the code is taken.
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
}
