package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		capacity    uint
		dryRun      bool
	)

	_ = godotenv.Load()

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing gzipped coupon CSV files")
	flag.StringVar(&pattern, "pattern", "*.csv.gz", "file name pattern inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "bloom-capacity", 1_000_000, "expected number of codes per file")
	flag.BoolVar(&dryRun, "dry-run", false, "validate files without writing to the database")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL, capacity, dryRun); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string, capacity uint, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "list coupon files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", pattern, dataDir)
	}
	if len(files) > maxFiles {
		return errors.Errorf("at most %d files can be imported at once, got %d", maxFiles, len(files))
	}
	sort.Strings(files)

	imp := &importer{
		files:    files,
		capacity: capacity,
		now:      time.Now,
	}

	if dryRun {
		imp.writer = discardWriter{}
		stats, err := imp.Run(ctx)
		if err != nil {
			return err
		}
		stats.log()
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp.writer = postgres.NewCouponRepository(postgres.NewDB(pool))
	stats, err := imp.Run(ctx)
	if err != nil {
		return err
	}
	stats.log()
	return nil
}
