// Package memory provides in-process implementations of every repository.
// It backs the "memory" storage driver and the service tests.
//
// A Store serializes transactions with a single mutex. WithinTx snapshots
// the whole state and restores it when the callback fails, so a failed
// workflow leaves no partial writes behind.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/returns"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/shipment"
	"github.com/xenking/storefront/internal/domain/txn"
)

var _ txn.Runner = (*Store)(nil)

type state struct {
	products   map[string]catalog.Product
	categories map[string]catalog.Category
	addresses  map[string]address.Address
	carts      map[string]cart.Cart
	userCarts  map[string]string
	coupons    map[string]coupon.Coupon
	orders     map[string]order.Order
	returns    map[string]returns.Return
	shipments  map[string]shipment.Shipment
	reviews    map[string]review.Review
	apiKeys    map[string]auth.APIKeyInfo
}

func newState() *state {
	return &state{
		products:   make(map[string]catalog.Product),
		categories: make(map[string]catalog.Category),
		addresses:  make(map[string]address.Address),
		carts:      make(map[string]cart.Cart),
		userCarts:  make(map[string]string),
		coupons:    make(map[string]coupon.Coupon),
		orders:     make(map[string]order.Order),
		returns:    make(map[string]returns.Return),
		shipments:  make(map[string]shipment.Shipment),
		reviews:    make(map[string]review.Review),
		apiKeys:    make(map[string]auth.APIKeyInfo),
	}
}

// clone deep-copies the state. Values holding slices get fresh backing
// arrays so that a restored snapshot is not affected by later appends.
func (st *state) clone() *state {
	c := &state{
		products:   maps.Clone(st.products),
		categories: maps.Clone(st.categories),
		addresses:  maps.Clone(st.addresses),
		carts:      make(map[string]cart.Cart, len(st.carts)),
		userCarts:  maps.Clone(st.userCarts),
		coupons:    maps.Clone(st.coupons),
		orders:     make(map[string]order.Order, len(st.orders)),
		returns:    make(map[string]returns.Return, len(st.returns)),
		shipments:  make(map[string]shipment.Shipment, len(st.shipments)),
		reviews:    maps.Clone(st.reviews),
		apiKeys:    make(map[string]auth.APIKeyInfo, len(st.apiKeys)),
	}
	for k, v := range st.carts {
		c.carts[k] = copyCart(v)
	}
	for k, v := range st.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range st.returns {
		c.returns[k] = copyReturn(v)
	}
	for k, v := range st.shipments {
		c.shipments[k] = copyShipment(v)
	}
	for k, v := range st.apiKeys {
		v.Scopes = slices.Clone(v.Scopes)
		c.apiKeys[k] = v
	}
	return c
}

// Store is an in-memory database shared by the repositories it hands out.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

// WithinTx runs fn holding the store lock. Changes made by fn are rolled
// back if it returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the state, taking the lock unless ctx already belongs
// to a transaction of this store.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Catalog returns the product, category and inventory repository.
func (s *Store) Catalog() *Catalog { return &Catalog{s: s} }

// Addresses returns the address repository.
func (s *Store) Addresses() *Addresses { return &Addresses{s: s} }

// Carts returns the cart repository.
func (s *Store) Carts() *Carts { return &Carts{s: s} }

// Coupons returns the coupon repository.
func (s *Store) Coupons() *Coupons { return &Coupons{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *Orders { return &Orders{s: s} }

// Returns returns the return repository.
func (s *Store) Returns() *Returns { return &Returns{s: s} }

// Shipments returns the shipment repository.
func (s *Store) Shipments() *Shipments { return &Shipments{s: s} }

// Reviews returns the product review repository.
func (s *Store) Reviews() *Reviews { return &Reviews{s: s} }

// APIKeys returns the API key repository.
func (s *Store) APIKeys() *APIKeys { return &APIKeys{s: s} }

func copyCart(c cart.Cart) cart.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func copyOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func copyReturn(r returns.Return) returns.Return {
	r.Items = slices.Clone(r.Items)
	return r
}

func copyShipment(sh shipment.Shipment) shipment.Shipment {
	sh.Updates = slices.Clone(sh.Updates)
	if sh.EstimatedDelivery != nil {
		t := *sh.EstimatedDelivery
		sh.EstimatedDelivery = &t
	}
	if sh.ActualDelivery != nil {
		t := *sh.ActualDelivery
		sh.ActualDelivery = &t
	}
	return sh
}
