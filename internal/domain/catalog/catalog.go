// Package catalog manages products, categories and product stock.
package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

var (
	// ErrInsufficientStock is returned when a stock change would drive a
	// product's stock below zero.
	ErrInsufficientStock = apperr.New(apperr.KindInsufficientStock, apperr.CodeOrderInsufficientStock, "insufficient stock")
	// ErrDuplicateCategory is returned when a category name is already taken.
	ErrDuplicateCategory = apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "category already exists")
)

// ProductNotFound returns the not-found error for product id.
func ProductNotFound(id string) error {
	return apperr.NotFound("product", id)
}

// InsufficientStock names the product whose stock cannot cover a request.
func InsufficientStock(p *Product, requested int) error {
	return ErrInsufficientStock.Withf("insufficient stock for product %q: requested %d, available %d",
		p.Name, requested, p.Stock)
}

// Product is a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  string
	SellerID    string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups products.
type Category struct {
	ID          string
	Name        string
	Description string
}

// Filter narrows product listings. Zero values mean "no constraint".
type Filter struct {
	CategoryID string
	SellerID   string
	Limit      int
	Offset     int
}

// Repository provides product persistence.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}

// CategoryRepository provides category persistence.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

// Inventory is the stock mutation contract used by the order and return
// workflows. Both methods must be called inside a transaction.
type Inventory interface {
	// LockProducts loads the given products and holds them against concurrent
	// stock changes until the transaction ends. Missing ids are omitted.
	LockProducts(ctx context.Context, ids []string) ([]Product, error)
	// AdjustStock adds delta to the product's stock. It fails with
	// ErrInsufficientStock instead of letting stock become negative.
	AdjustStock(ctx context.Context, productID string, delta int) error
}
