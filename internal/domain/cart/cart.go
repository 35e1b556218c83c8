// Package cart implements per-user shopping carts.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 10_000

var (
	// ErrInvalidQuantity is returned when adding a non-positive quantity.
	ErrInvalidQuantity = apperr.New(apperr.KindInvalidInput, apperr.CodeValidation,
		"quantity must be greater than 0").WithField("quantity")
	ErrQuantityTooLarge = apperr.New(apperr.KindInvalidInput, apperr.CodeValidation,
		"quantity must not exceed 10000").WithField("quantity")
)

// Item is a cart line. Prices are not stored; they are read live from the
// catalog every time the cart is viewed.
type Item struct {
	ProductID string
	Quantity  int
}

// Cart is the single cart of a user.
type Cart struct {
	ID        string
	UserID    string
	Items     []Item
	UpdatedAt time.Time
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Quantity returns the quantity of productID in the cart, or 0.
func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Line is a priced cart line.
type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
	InStock   bool
}

// View is a cart priced against the current catalog.
type View struct {
	ID         string
	UserID     string
	Lines      []Line
	TotalItems int
	TotalPrice decimal.Decimal
}

// Repository provides cart persistence.
type Repository interface {
	// GetOrCreate returns the user's cart, creating an empty one on first use.
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	// SetItem stores the line for productID with the given quantity,
	// inserting it at the end of the cart when absent.
	SetItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}
