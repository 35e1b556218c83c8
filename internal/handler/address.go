package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListAddresses handles GET /addresses.
func (h *Handler) ListAddresses(c *gin.Context) {
	list, err := h.svc.Addresses.List(c.Request.Context(), caller(c).UserID)
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]addressResponse, len(list))
	for i := range list {
		out[i] = toAddress(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

// GetAddress handles GET /addresses/:id.
func (h *Handler) GetAddress(c *gin.Context) {
	a, err := h.svc.Addresses.Get(c.Request.Context(), caller(c).UserID, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddress(a))
}

// CreateAddress handles POST /addresses.
func (h *Handler) CreateAddress(c *gin.Context) {
	var req addressRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Addresses.Create(c.Request.Context(), caller(c).UserID, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAddress(a))
}

// UpdateAddress handles PUT /addresses/:id.
func (h *Handler) UpdateAddress(c *gin.Context) {
	var req addressRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Addresses.Update(c.Request.Context(), caller(c).UserID, c.Param("id"), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddress(a))
}

// SetDefaultAddress handles PUT /addresses/:id/default.
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	a, err := h.svc.Addresses.SetDefault(c.Request.Context(), caller(c).UserID, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddress(a))
}

// DeleteAddress handles DELETE /addresses/:id.
func (h *Handler) DeleteAddress(c *gin.Context) {
	if err := h.svc.Addresses.Delete(c.Request.Context(), caller(c).UserID, c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
