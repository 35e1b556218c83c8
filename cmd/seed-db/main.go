package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type catalogJSON struct {
	Categories []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"categories"`
	Products []struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		Category    string          `json:"category"`
		Seller      string          `json:"seller"`
		Image       string          `json:"image"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	_ = godotenv.Load()

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to categories and products JSON file (defaults to the bundled demo catalog)")
	flag.StringVar(&apiKey, "api-key", "", "integration API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_AUTH_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_AUTH_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewDB(pool)

	if err := seedCatalog(ctx, postgres.NewCatalogRepository(store), catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(store)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if apiKey == "" {
		slog.Info("no API key given, skipping")
		return nil
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(store), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCatalog(ctx context.Context, repo *postgres.CatalogRepository, catalogFile string) error {
	data := db.SeedCatalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		var err error
		if data, err = os.ReadFile(catalogFile); err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}

	var seed catalogJSON
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	for _, c := range seed.Categories {
		_, err := repo.GetCategory(ctx, c.ID)
		switch {
		case err == nil:
			slog.Info("category exists", slog.String("id", c.ID))
			continue
		case apperr.KindOf(err) != apperr.KindNotFound:
			return errors.Wrapf(err, "get category %s", c.ID)
		}

		if err := repo.CreateCategory(ctx, &catalog.Category{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
		}); err != nil {
			return errors.Wrapf(err, "create category %s", c.ID)
		}

		slog.Info("created category", slog.String("id", c.ID), slog.String("name", c.Name))
	}

	now := time.Now()
	for _, p := range seed.Products {
		_, err := repo.GetByID(ctx, p.ID)
		switch {
		case err == nil:
			slog.Info("product exists", slog.String("id", p.ID))
			continue
		case apperr.KindOf(err) != apperr.KindNotFound:
			return errors.Wrapf(err, "get product %s", p.ID)
		}

		if err := repo.Create(ctx, &catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			CategoryID:  p.Category,
			SellerID:    p.Seller,
			ImageURL:    p.Image,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return errors.Wrapf(err, "create product %s", p.ID)
		}

		slog.Info("created product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding demo coupons")

	var (
		now       = time.Now()
		validFrom = now.AddDate(0, 0, -1)
		validTo   = now.AddDate(1, 0, 0)
	)
	inputs := []coupon.Input{
		{
			Code:              "SAVE10",
			Description:       "10% off orders of 50.00 or more",
			DiscountPercent:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
			MinPurchaseAmount: decimal.NewNullDecimal(decimal.NewFromInt(50)),
			ValidFrom:         validFrom,
			ValidTo:           validTo,
			IsActive:          true,
		},
		{
			Code:           "WELCOME5",
			Description:    "5.00 off your first order",
			DiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(5)),
			ValidFrom:      validFrom,
			ValidTo:        validTo,
			IsActive:       true,
		},
	}

	for _, in := range inputs {
		c, err := coupon.New(in, now)
		if err != nil {
			return errors.Wrapf(err, "build coupon %s", in.Code)
		}
		inserted, err := repo.Import(ctx, c)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", in.Code)
		}

		slog.Info("seeded coupon",
			slog.String("code", c.Code),
			slog.String("description", c.Description),
			slog.Bool("inserted", inserted),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding integration API key")

	err := repo.Create(ctx, &auth.APIKeyInfo{
		ID:      "integration",
		KeyHash: auth.HashAPIKey([]byte(pepper), apiKey),
		Name:    "Carrier and admin integrations",
		Scopes:  []string{string(auth.RoleAdmin)},
	})
	if apperr.KindOf(err) == apperr.KindConflict {
		slog.Info("API key exists", slog.String("id", "integration"))
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "create API key")
	}

	slog.Info("created API key", slog.String("id", "integration"))

	return nil
}
