package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/txn"
)

// ProductReader is the part of the catalog the cart needs.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
}

// Service implements cart operations.
type Service struct {
	tx       txn.Runner
	carts    Repository
	products ProductReader
}

// NewService creates a cart Service.
func NewService(tx txn.Runner, carts Repository, products ProductReader) *Service {
	return &Service{tx: tx, carts: carts, products: products}
}

// Get returns the user's cart priced at current catalog prices.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return s.view(ctx, c)
}

// AddItem adds quantity of a product. The cumulative quantity in the cart
// must not exceed available stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return nil, ErrQuantityTooLarge
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		inCart := c.Quantity(productID)
		if quantity > p.Stock-inCart {
			return catalog.ErrInsufficientStock.Withf(
				"insufficient stock for product %q: %d in cart, requested %d more, available %d",
				p.Name, inCart, quantity, p.Stock)
		}
		return s.carts.SetItem(ctx, c.ID, productID, inCart+quantity)
	})
	if err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return s.Get(ctx, userID)
}

// UpdateItem replaces the quantity of a product already in the cart. A
// quantity of zero or less removes the line.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*View, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if c.Quantity(productID) == 0 {
			return apperr.NotFound("cart item", productID)
		}
		if quantity <= 0 {
			return s.carts.RemoveItem(ctx, c.ID, productID)
		}
		if quantity > MaxQuantity {
			return ErrQuantityTooLarge
		}
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > p.Stock {
			return catalog.InsufficientStock(p, quantity)
		}
		return s.carts.SetItem(ctx, c.ID, productID, quantity)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}
	return s.Get(ctx, userID)
}

// RemoveItem drops a product from the cart. Removing an absent product is
// not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if err := s.carts.RemoveItem(ctx, c.ID, productID); err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}
	return s.carts.Clear(ctx, c.ID)
}

func (s *Service) view(ctx context.Context, c *Cart) (*View, error) {
	v := &View{ID: c.ID, UserID: c.UserID, TotalPrice: decimal.Zero}
	if c.IsEmpty() {
		return v, nil
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	v.Lines = make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		v.Lines = append(v.Lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			Subtotal:  subtotal,
			InStock:   it.Quantity <= p.Stock,
		})
		v.TotalItems += it.Quantity
		v.TotalPrice = v.TotalPrice.Add(subtotal)
	}
	return v, nil
}
