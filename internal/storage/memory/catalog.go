package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/catalog"
)

var (
	_ catalog.Repository         = (*Catalog)(nil)
	_ catalog.CategoryRepository = (*Catalog)(nil)
	_ catalog.Inventory          = (*Catalog)(nil)
)

// Catalog stores products and categories.
type Catalog struct {
	s *Store
}

func (r *Catalog) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if f.CategoryID != "" && p.CategoryID != f.CategoryID {
				continue
			}
			if f.SellerID != "" && p.SellerID != f.SellerID {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b catalog.Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []catalog.Product{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Catalog) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if p, ok = st.products[id]; !ok {
			return catalog.ProductNotFound(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Catalog) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *Catalog) Create(ctx context.Context, p *catalog.Product) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "product "+p.ID+" already exists")
		}
		st.products[p.ID] = *p
		return nil
	})
}

// Update persists the editable product fields. Stock is only changed through
// AdjustStock.
func (r *Catalog) Update(ctx context.Context, p *catalog.Product) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return catalog.ProductNotFound(p.ID)
		}
		stock := cur.Stock
		cur = *p
		cur.Stock = stock
		st.products[p.ID] = cur
		return nil
	})
}

// LockProducts returns the products sorted by id. The store lock held by the
// surrounding transaction already excludes concurrent writers.
func (r *Catalog) LockProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	out, err := r.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b catalog.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *Catalog) AdjustStock(ctx context.Context, productID string, delta int) error {
	return r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return catalog.ProductNotFound(productID)
		}
		if p.Stock+delta < 0 {
			return catalog.InsufficientStock(&p, -delta)
		}
		p.Stock += delta
		st.products[productID] = p
		return nil
	})
}

func (r *Catalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	err := r.s.do(ctx, func(st *state) error {
		for _, c := range st.categories {
			out = append(out, c)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, err
}

func (r *Catalog) GetCategory(ctx context.Context, id string) (*catalog.Category, error) {
	var c catalog.Category
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if c, ok = st.categories[id]; !ok {
			return apperr.NotFound("category", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Catalog) CreateCategory(ctx context.Context, c *catalog.Category) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.categories {
			if strings.EqualFold(existing.Name, c.Name) {
				return catalog.ErrDuplicateCategory.Withf("category %q already exists", c.Name)
			}
		}
		st.categories[c.ID] = *c
		return nil
	})
}
