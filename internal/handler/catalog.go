package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// ListProducts handles GET /products.
func (h *Handler) ListProducts(c *gin.Context) {
	var q productQuery
	if !bindQuery(c, &q) {
		return
	}
	list, err := h.svc.Catalog.ListProducts(c.Request.Context(), catalog.Filter{
		CategoryID: q.CategoryID,
		SellerID:   q.SellerID,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]productResponse, len(list))
	for i := range list {
		out[i] = h.product(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

// GetProduct handles GET /products/:id.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.svc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.product(p))
}

// CreateProduct handles POST /products.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Catalog.CreateProduct(c.Request.Context(), caller(c), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.product(p))
}

// UpdateProduct handles PUT /products/:id.
func (h *Handler) UpdateProduct(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Catalog.UpdateProduct(c.Request.Context(), caller(c), c.Param("id"), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.product(p))
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.svc.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]categoryResponse, len(list))
	for i := range list {
		out[i] = toCategory(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateCategory handles POST /categories.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.svc.Catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCategory(cat))
}
