package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Repository = (*Carts)(nil)

// Carts stores one cart per user.
type Carts struct {
	s *Store
}

func (r *Carts) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.s.do(ctx, func(st *state) error {
		if id, ok := st.userCarts[userID]; ok {
			c = copyCart(st.carts[id])
			return nil
		}
		c = cart.Cart{ID: uuid.New().String(), UserID: userID, UpdatedAt: time.Now()}
		st.carts[c.ID] = c
		st.userCarts[userID] = c.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Carts) SetItem(ctx context.Context, cartID, productID string, quantity int) error {
	return r.s.updateCart(ctx, cartID, func(c *cart.Cart) {
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items[i].Quantity = quantity
				return
			}
		}
		c.Items = append(c.Items, cart.Item{ProductID: productID, Quantity: quantity})
	})
}

func (r *Carts) RemoveItem(ctx context.Context, cartID, productID string) error {
	return r.s.updateCart(ctx, cartID, func(c *cart.Cart) {
		c.Items = slices.DeleteFunc(c.Items, func(it cart.Item) bool { return it.ProductID == productID })
	})
}

func (r *Carts) Clear(ctx context.Context, cartID string) error {
	return r.s.updateCart(ctx, cartID, func(c *cart.Cart) {
		c.Items = nil
	})
}

func (s *Store) updateCart(ctx context.Context, cartID string, fn func(c *cart.Cart)) error {
	return s.do(ctx, func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return apperr.NotFound("cart", cartID)
		}
		c = copyCart(c)
		fn(&c)
		c.UpdatedAt = time.Now()
		st.carts[cartID] = c
		return nil
	})
}
