package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProductReviews handles GET /products/:id/reviews.
func (h *Handler) ListProductReviews(c *gin.Context) {
	list, err := h.svc.Reviews.ListForProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]reviewResponse, len(list))
	for i := range list {
		out[i] = toReview(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateReview handles POST /products/:id/reviews.
func (h *Handler) CreateReview(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Reviews.Create(c.Request.Context(), caller(c).UserID, c.Param("id"), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReview(r))
}

// UpdateReview handles PUT /reviews/:id.
func (h *Handler) UpdateReview(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Reviews.Update(c.Request.Context(), caller(c), c.Param("id"), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toReview(r))
}

// DeleteReview handles DELETE /reviews/:id.
func (h *Handler) DeleteReview(c *gin.Context) {
	if err := h.svc.Reviews.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
