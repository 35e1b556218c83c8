package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/catalog"
)

const productColumns = `id, name, description, price, stock, COALESCE(category_id, ''), seller_id, image_url,
		created_at, updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR category_id = $1) AND ($2 = '' OR seller_id = $2)
		ORDER BY created_at, id
		LIMIT NULLIF($3::int, 0) OFFSET $4`

	getProductSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	lockProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	createProductSQL = `INSERT INTO products
		(id, name, description, price, stock, category_id, seller_id, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)`

	updateProductSQL = `UPDATE products SET name = $2, description = $3, price = $4,
		category_id = NULLIF($5, ''), image_url = $6, updated_at = $7
		WHERE id = $1`

	adjustStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0`

	listCategoriesSQL = `SELECT id, name, description FROM categories ORDER BY name`

	getCategorySQL = `SELECT id, name, description FROM categories WHERE id = $1`

	createCategorySQL = `INSERT INTO categories (id, name, description) VALUES ($1, $2, $3)`
)

var (
	_ catalog.Repository         = (*CatalogRepository)(nil)
	_ catalog.CategoryRepository = (*CatalogRepository)(nil)
	_ catalog.Inventory          = (*CatalogRepository)(nil)
)

// CatalogRepository implements product, category and inventory persistence.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository returns a CatalogRepository that uses db.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// List returns products matching f ordered by creation time.
func (r *CatalogRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, listProductsSQL, f.CategoryID, f.SellerID, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ProductNotFound(id)
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *CatalogRepository) Create(ctx context.Context, p *catalog.Product) error {
	_, err := r.db.q(ctx).Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID, p.SellerID, p.ImageURL,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update persists descriptive fields and price. Stock is left untouched.
func (r *CatalogRepository) Update(ctx context.Context, p *catalog.Product) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.CategoryID, p.ImageURL, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ProductNotFound(p.ID)
	}
	return nil
}

// LockProducts selects the products FOR UPDATE in id order, so concurrent
// orders over the same products always lock them in the same sequence.
func (r *CatalogRepository) LockProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, lockProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// AdjustStock applies delta with a guarded update that never lets stock go
// negative.
func (r *CatalogRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	tag, err := r.db.q(ctx).Exec(ctx, adjustStockSQL, productID, delta)
	if err != nil {
		return fmt.Errorf("adjusting stock of %q: %w", productID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	p, err := r.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	return catalog.InsufficientStock(p, -delta)
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.db.q(ctx).Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[catalog.Category])
}

func (r *CatalogRepository) GetCategory(ctx context.Context, id string) (*catalog.Category, error) {
	var c catalog.Category
	err := r.db.q(ctx).QueryRow(ctx, getCategorySQL, id).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("category", id)
		}
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	return &c, nil
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	_, err := r.db.q(ctx).Exec(ctx, createCategorySQL, c.ID, c.Name, c.Description)
	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return catalog.ErrDuplicateCategory.Withf("category %q already exists", c.Name)
		}
		return fmt.Errorf("creating category %q: %w", c.Name, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.SellerID, &p.ImageURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
