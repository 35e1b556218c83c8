package app

import (
	"context"

	"github.com/go-faster/errors"

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
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
)

type catalogStore interface {
	catalog.Repository
	catalog.CategoryRepository
	catalog.Inventory
}

// repositories is the set of persistence adapters the services run on.
type repositories struct {
	tx        txn.Runner
	catalog   catalogStore
	carts     cart.Repository
	addresses address.Repository
	coupons   coupon.Repository
	orders    order.Repository
	returns   returns.Repository
	shipments shipment.Repository
	reviews   review.Repository
	apikeys   auth.Repository

	// pinger is nil for backends without a remote dependency.
	pinger health.Pinger
	close  func()
}

// openStorage connects the configured backend. Postgres schemas are migrated
// before use.
func openStorage(ctx context.Context, cfg *Config) (*repositories, error) {
	switch cfg.Storage.Driver {
	case DriverMemory:
		st := memory.New()
		return &repositories{
			tx:        st,
			catalog:   st.Catalog(),
			carts:     st.Carts(),
			addresses: st.Addresses(),
			coupons:   st.Coupons(),
			orders:    st.Orders(),
			returns:   st.Returns(),
			shipments: st.Shipments(),
			reviews:   st.Reviews(),
			apikeys:   st.APIKeys(),
			close:     func() {},
		}, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		db := postgres.NewDB(pool)
		return &repositories{
			tx:        db,
			catalog:   postgres.NewCatalogRepository(db),
			carts:     postgres.NewCartRepository(db),
			addresses: postgres.NewAddressRepository(db),
			coupons:   postgres.NewCouponRepository(db),
			orders:    postgres.NewOrderRepository(db),
			returns:   postgres.NewReturnRepository(db),
			shipments: postgres.NewShipmentRepository(db),
			reviews:   postgres.NewReviewRepository(db),
			apikeys:   postgres.NewAPIKeyRepository(db),
			pinger:    db,
			close:     pool.Close,
		}, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
