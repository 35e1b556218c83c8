package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

// ProductInput holds the editable fields of a product.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  string
	ImageURL    string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("name", "name is required")
	}
	if in.Price.IsNegative() {
		return apperr.Invalid("price", "price must not be negative")
	}
	if in.Stock < 0 {
		return apperr.Invalid("stock", "stock must not be negative")
	}
	if in.CategoryID == "" {
		return apperr.Invalid("categoryId", "category is required")
	}
	return nil
}

// Service implements catalog management.
type Service struct {
	products   Repository
	categories CategoryRepository
	now        func() time.Time
}

// NewService creates a catalog Service.
func NewService(products Repository, categories CategoryRepository) *Service {
	return &Service{
		products:   products,
		categories: categories,
		now:        time.Now,
	}
}

// ListProducts returns products matching f.
func (s *Service) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.products.List(ctx, f)
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// CreateProduct registers a product owned by the calling seller.
func (s *Service) CreateProduct(ctx context.Context, actor auth.Identity, in ProductInput) (*Product, error) {
	if !actor.HasRole(auth.RoleSeller, auth.RoleAdmin) {
		return nil, apperr.Forbidden("only sellers can create products")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.categories.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		SellerID:    actor.UserID,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// UpdateProduct edits a product's descriptive fields and price. Stock is
// owned by the order workflow and is never changed here.
func (s *Service) UpdateProduct(ctx context.Context, actor auth.Identity, id string, in ProductInput) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("product belongs to another seller")
	}
	in.Stock = p.Stock
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.CategoryID != p.CategoryID {
		if _, err := s.categories.GetCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.CategoryID = in.CategoryID
	p.ImageURL = in.ImageURL
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.categories.ListCategories(ctx)
}

// CreateCategory adds a category. Names are unique.
func (s *Service) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "name is required")
	}
	c := &Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
