package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/cart"
)

func (h *Handler) writeCart(c *gin.Context, v *cart.View, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(v))
}

// GetCart handles GET /cart.
func (h *Handler) GetCart(c *gin.Context) {
	v, err := h.svc.Carts.Get(c.Request.Context(), caller(c).UserID)
	h.writeCart(c, v, err)
}

// AddCartItem handles POST /cart/items.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req cartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Carts.AddItem(c.Request.Context(), caller(c).UserID, req.ProductID, req.Quantity)
	h.writeCart(c, v, err)
}

// UpdateCartItem handles PUT /cart/items/:productId.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req cartQuantityRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Carts.UpdateItem(c.Request.Context(), caller(c).UserID, c.Param("productId"), req.Quantity)
	h.writeCart(c, v, err)
}

// RemoveCartItem handles DELETE /cart/items/:productId.
func (h *Handler) RemoveCartItem(c *gin.Context) {
	v, err := h.svc.Carts.RemoveItem(c.Request.Context(), caller(c).UserID, c.Param("productId"))
	h.writeCart(c, v, err)
}

// ClearCart handles DELETE /cart.
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.svc.Carts.Clear(c.Request.Context(), caller(c).UserID); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
