package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	// maxFiles bounds the per-code file bitmask.
	maxFiles = bits.UintSize
)

// Column order of the coupon CSV files. A header row starting with "code" is
// skipped.
const (
	colCode = iota
	colDescription
	colDiscountPercent
	colDiscountAmount
	colMinPurchase
	colValidFrom
	colValidTo
	numColumns
)

// couponWriter stores imported coupons, reporting false for codes that
// already exist.
type couponWriter interface {
	Import(ctx context.Context, c *coupon.Coupon) (bool, error)
}

type discardWriter struct{}

func (discardWriter) Import(context.Context, *coupon.Coupon) (bool, error) { return true, nil }

// importStats summarises an import run.
type importStats struct {
	Inserted   int
	Existing   int
	Duplicates int
	Invalid    int
}

func (s importStats) log() {
	slog.Info("import summary",
		slog.Int("inserted", s.Inserted),
		slog.Int("existing", s.Existing),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("invalid", s.Invalid),
	)
}

// importer loads coupon definitions from gzipped CSV files. Codes defined in
// more than one file are ambiguous and rejected. Detecting them takes two
// passes: the first builds a bloom filter per file, the second confirms
// filter hits against the actual file contents.
type importer struct {
	files    []string
	capacity uint
	writer   couponWriter
	now      func() time.Time
}

// Run executes both detection passes and then writes the remaining rows.
func (imp *importer) Run(ctx context.Context) (importStats, error) {
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(imp.files)))

	filters, err := imp.buildFilters(ctx)
	if err != nil {
		return importStats{}, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: confirming codes shared between files")

	dups, err := imp.findDuplicates(ctx, filters)
	if err != nil {
		return importStats{}, errors.Wrap(err, "find duplicate codes")
	}

	slog.Info("duplicate codes found", slog.Int("count", len(dups)))

	return imp.write(ctx, dups)
}

// buildFilters creates one bloom filter per file, concurrently.
func (imp *importer) buildFilters(ctx context.Context) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(imp.files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range imp.files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(imp.capacity, bloomFPR)
			var count int
			if err := streamCoupons(ctx, path, func(rec []string) error {
				filter.AddString(rec[colCode])
				count++
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}

			slog.Info("pass 1 complete", slog.String("file", path), slog.Int("codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findDuplicates re-streams every file and checks its codes against the other
// files' filters. A code is a confirmed duplicate when at least two files
// report it, which rules out bloom false positives.
func (imp *importer) findDuplicates(ctx context.Context, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	candidates := make([]map[string]uint, len(imp.files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range imp.files {
		g.Go(func() error {
			found := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			if err := streamCoupons(ctx, path, func(rec []string) error {
				code := rec[colCode]
				for j, f := range filters {
					if j != i && f.TestString(code) {
						found[code] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "scan %s for duplicates", path)
			}

			slog.Info("pass 2 complete", slog.String("file", path), slog.Int("candidates", len(found)))
			candidates[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range candidates {
		for code, mask := range found {
			merged[code] |= mask
		}
	}

	dups := make(map[string]struct{})
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			dups[code] = struct{}{}
		}
	}
	return dups, nil
}

// write validates and stores every row whose code is not a duplicate.
func (imp *importer) write(ctx context.Context, dups map[string]struct{}) (importStats, error) {
	var stats importStats
	now := imp.now()

	for _, path := range imp.files {
		line := 0
		err := streamCoupons(ctx, path, func(rec []string) error {
			line++
			code := rec[colCode]
			if _, ok := dups[code]; ok {
				stats.Duplicates++
				slog.Warn("rejected duplicate code", slog.String("file", path), slog.String("code", code))
				return nil
			}

			c, err := parseCoupon(rec, now)
			if err != nil {
				stats.Invalid++
				slog.Warn("rejected invalid row",
					slog.String("file", path),
					slog.Int("row", line),
					slog.String("code", code),
					slog.String("error", err.Error()),
				)
				return nil
			}

			inserted, err := imp.writer.Import(ctx, c)
			if err != nil {
				return errors.Wrapf(err, "import %s", code)
			}
			if inserted {
				stats.Inserted++
			} else {
				stats.Existing++
			}

			if n := stats.Inserted + stats.Existing; n%progressEvery == 0 {
				slog.Info("write progress", slog.Int("written", n))
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// parseCoupon converts a CSV record into a validated coupon.
func parseCoupon(rec []string, now time.Time) (*coupon.Coupon, error) {
	in := coupon.Input{
		Code:        rec[colCode],
		Description: rec[colDescription],
		IsActive:    true,
	}

	var err error
	if in.DiscountPercent, err = parseNullDecimal(rec[colDiscountPercent]); err != nil {
		return nil, errors.Wrap(err, "discount percent")
	}
	if in.DiscountAmount, err = parseNullDecimal(rec[colDiscountAmount]); err != nil {
		return nil, errors.Wrap(err, "discount amount")
	}
	if in.MinPurchaseAmount, err = parseNullDecimal(rec[colMinPurchase]); err != nil {
		return nil, errors.Wrap(err, "min purchase amount")
	}
	if in.ValidFrom, err = parseDate(rec[colValidFrom]); err != nil {
		return nil, errors.Wrap(err, "valid from")
	}
	if in.ValidTo, err = parseDate(rec[colValidTo]); err != nil {
		return nil, errors.Wrap(err, "valid to")
	}
	return coupon.New(in, now)
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// streamCoupons opens a gzip-compressed CSV file and calls fn for each coupon
// record. Records are trimmed and reused between calls.
func streamCoupons(ctx context.Context, path string, fn func(rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = numColumns
	r.ReuseRecord = true

	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if first {
			first = false
			if strings.EqualFold(rec[colCode], "code") {
				continue
			}
		}
		if rec[colCode] == "" {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
