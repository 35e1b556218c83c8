//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/returns"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/shipment"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func setupDB(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()

	c, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	return postgres.NewDB(pool)
}

type services struct {
	catalog  *postgres.CatalogRepository
	orders   *order.Service
	returns  *returns.Service
	shipment *shipment.Service
	address  *address.Service
}

func newServices(db *postgres.DB) services {
	cat := postgres.NewCatalogRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	gw := payment.NewSimulated(nil)
	return services{
		catalog: cat,
		orders: order.NewService(order.Deps{
			Tx:        db,
			Orders:    orderRepo,
			Carts:     postgres.NewCartRepository(db),
			Inventory: cat,
			Addresses: postgres.NewAddressRepository(db),
			Coupons:   coupon.NewService(postgres.NewCouponRepository(db)),
			Gateway:   gw,
		}),
		returns: returns.NewService(returns.Deps{
			Tx:        db,
			Returns:   postgres.NewReturnRepository(db),
			Orders:    orderRepo,
			Inventory: cat,
			Gateway:   gw,
		}),
		shipment: shipment.NewService(db, postgres.NewShipmentRepository(db), orderRepo),
		address:  address.NewService(db, postgres.NewAddressRepository(db)),
	}
}

func seedProduct(t *testing.T, db *postgres.DB, id string, stock int) {
	t.Helper()
	now := time.Now()
	err := postgres.NewCatalogRepository(db).Create(context.Background(), &catalog.Product{
		ID:        id,
		Name:      "Product " + id,
		Price:     decimal.RequireFromString("12.50"),
		Stock:     stock,
		SellerID:  "seller-1",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func newAddress(t *testing.T, svc *address.Service, userID string) string {
	t.Helper()
	a, err := svc.Create(context.Background(), userID, address.Input{
		RecipientName: "Test",
		Line1:         "1 Main St",
		City:          "Springfield",
		PostalCode:    "12345",
		Country:       "US",
	})
	require.NoError(t, err)
	return a.ID
}

func fillCart(t *testing.T, db *postgres.DB, userID, productID string, qty int) {
	t.Helper()
	carts := postgres.NewCartRepository(db)
	c, err := carts.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, carts.SetItem(context.Background(), c.ID, productID, qty))
}

func TestOrderLifecycle(t *testing.T) {
	db := setupDB(t)
	svc := newServices(db)
	ctx := context.Background()

	seedProduct(t, db, "p1", 10)
	addr := newAddress(t, svc.address, "u1")
	fillCart(t, db, "u1", "p1", 3)

	o, err := svc.orders.PlaceOrder(ctx, "u1", order.PlaceOrderRequest{
		ShippingAddressID: addr,
		PaymentMethod:     "card",
	})
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("37.50")))

	p, err := svc.catalog.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)

	_, err = svc.orders.Pay(ctx, "u1", o.ID)
	require.NoError(t, err)

	sh, err := svc.shipment.Create(ctx, shipment.CreateRequest{OrderID: o.ID, Carrier: "DHL"})
	require.NoError(t, err)
	_, err = svc.shipment.Create(ctx, shipment.CreateRequest{OrderID: o.ID, Carrier: "DHL"})
	assert.ErrorIs(t, err, shipment.ErrAlreadyExists)

	_, err = svc.shipment.UpdateStatus(ctx, sh.ID, shipment.StatusDelivered, "Door", "Delivered")
	require.NoError(t, err)

	got, err := svc.orders.Get(ctx, auth.Identity{UserID: "u1"}, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, got.Status)
	require.Len(t, got.Items, 1)

	r, err := svc.returns.Create(ctx, "u1", returns.CreateRequest{
		OrderID: o.ID,
		Reason:  "changed mind",
		Items: []returns.ItemRequest{{
			OrderItemID: got.Items[0].ID,
			Quantity:    2,
			Reason:      returns.ReasonNoLongerNeeded,
			Condition:   returns.ConditionUnopened,
		}},
	})
	require.NoError(t, err)
	_, err = svc.returns.UpdateStatus(ctx, r.ID, returns.StatusApproved, "")
	require.NoError(t, err)
	_, err = svc.returns.UpdateStatus(ctx, r.ID, returns.StatusReceived, "")
	require.NoError(t, err)
	r, err = svc.returns.ProcessRefund(ctx, r.ID, decimal.RequireFromString("25"))
	require.NoError(t, err)
	assert.Equal(t, returns.StatusRefunded, r.Status)

	p, err = svc.catalog.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 9, p.Stock)

	got, err = svc.orders.Get(ctx, auth.Identity{UserID: "u1"}, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPartiallyRefunded, got.PaymentStatus)

	err = svc.address.Delete(ctx, "u1", addr)
	assert.ErrorIs(t, err, address.ErrInUse)
}

func TestPlaceOrder_ConcurrentNeverOversells(t *testing.T) {
	db := setupDB(t)
	svc := newServices(db)
	seedProduct(t, db, "p1", 3)

	const buyers = 8
	addrs := make([]string, buyers)
	for i := range buyers {
		user := "buyer-" + string(rune('a'+i))
		addrs[i] = newAddress(t, svc.address, user)
		fillCart(t, db, user, "p1", 1)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		outOfStk int
	)
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.orders.PlaceOrder(context.Background(), "buyer-"+string(rune('a'+i)), order.PlaceOrderRequest{
				ShippingAddressID: addrs[i],
				PaymentMethod:     "card",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case apperr.KindOf(err) == apperr.KindInsufficientStock:
				outOfStk++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, placed)
	assert.Equal(t, buyers-3, outOfStk)

	p, err := svc.catalog.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Zero(t, p.Stock)
}

func TestAddressDefaultIsUnique(t *testing.T) {
	db := setupDB(t)
	svc := newServices(db)
	ctx := context.Background()

	first := newAddress(t, svc.address, "u1")
	second := newAddress(t, svc.address, "u1")
	_, err := svc.address.SetDefault(ctx, "u1", second)
	require.NoError(t, err)

	list, err := svc.address.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, a := range list {
		assert.Equal(t, a.ID == second, a.IsDefault, a.ID)
	}
	assert.NotEqual(t, first, second)
}

func TestCouponRepository(t *testing.T) {
	db := setupDB(t)
	repo := postgres.NewCouponRepository(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)

	c := &coupon.Coupon{
		ID:                "c1",
		Code:              "SAVE10",
		DiscountPercent:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
		MinPurchaseAmount: decimal.NewNullDecimal(decimal.NewFromInt(20)),
		ValidFrom:         now.Add(-time.Hour),
		ValidTo:           now.Add(time.Hour),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, repo.Create(ctx, c))

	dup := *c
	dup.ID = "c2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), coupon.ErrDuplicateCode)

	inserted, err := repo.Import(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.False(t, got.DiscountAmount.Valid)
	assert.True(t, got.DiscountPercent.Decimal.Equal(decimal.NewFromInt(10)))

	_, err = repo.GetByCode(ctx, "save10")
	assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestReviewRepository(t *testing.T) {
	db := setupDB(t)
	seedProduct(t, db, "p1", 1)
	repo := postgres.NewReviewRepository(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)

	older := &review.Review{ID: "r1", ProductID: "p1", UserID: "u1", Rating: 3, Comment: "fine", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)}
	newer := &review.Review{ID: "r2", ProductID: "p1", UserID: "u2", Rating: 5, Comment: "great", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	bad := *newer
	bad.ID, bad.Rating = "r3", 7
	assert.Error(t, repo.Create(ctx, &bad), "rating is range checked")

	list, err := repo.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Equal(t, "r1", list[1].ID)

	older.Rating, older.Comment = 4, "better"
	require.NoError(t, repo.Update(ctx, older))
	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "better", got.Comment)

	require.NoError(t, repo.Delete(ctx, "r1"))
	_, err = repo.Get(ctx, "r1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(repo.Delete(ctx, "r1")))
}
