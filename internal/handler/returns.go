package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/returns"
)

func writeReturn(c *gin.Context, status int, r *returns.Return, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(status, toReturn(r))
}

func writeReturns(c *gin.Context, list []returns.Return, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toReturns(list))
}

// CreateReturn handles POST /returns.
func (h *Handler) CreateReturn(c *gin.Context) {
	var req returnRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Returns.Create(c.Request.Context(), caller(c).UserID, req.request())
	writeReturn(c, http.StatusCreated, r, err)
}

// ListReturns handles GET /returns.
func (h *Handler) ListReturns(c *gin.Context) {
	list, err := h.svc.Returns.ListForUser(c.Request.Context(), caller(c).UserID)
	writeReturns(c, list, err)
}

// GetReturn handles GET /returns/:id.
func (h *Handler) GetReturn(c *gin.Context) {
	r, err := h.svc.Returns.Get(c.Request.Context(), caller(c), c.Param("id"))
	writeReturn(c, http.StatusOK, r, err)
}

// ListOrderReturns handles GET /orders/:id/returns.
func (h *Handler) ListOrderReturns(c *gin.Context) {
	list, err := h.svc.Returns.ListForOrder(c.Request.Context(), caller(c), c.Param("id"))
	writeReturns(c, list, err)
}

// ListAllReturns handles GET /admin/returns?status=.
func (h *Handler) ListAllReturns(c *gin.Context) {
	var q listQuery
	if !bindQuery(c, &q) {
		return
	}
	var st returns.Status
	if q.Status != "" {
		var err error
		if st, err = returns.ParseStatus(q.Status); err != nil {
			abort(c, err)
			return
		}
	}
	list, err := h.svc.Returns.ListAll(c.Request.Context(), st)
	writeReturns(c, list, err)
}

// UpdateReturnStatus handles PUT /returns/:id/status.
func (h *Handler) UpdateReturnStatus(c *gin.Context) {
	var req returnStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := returns.ParseStatus(req.Status)
	if err != nil {
		abort(c, err)
		return
	}
	r, err := h.svc.Returns.UpdateStatus(c.Request.Context(), c.Param("id"), st, req.Notes)
	writeReturn(c, http.StatusOK, r, err)
}

// ProcessRefund handles PUT /returns/:id/refund.
func (h *Handler) ProcessRefund(c *gin.Context) {
	var req refundRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Returns.ProcessRefund(c.Request.Context(), c.Param("id"), req.Amount)
	writeReturn(c, http.StatusOK, r, err)
}

// RejectReturn handles PUT /returns/:id/reject.
func (h *Handler) RejectReturn(c *gin.Context) {
	var req notesRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Returns.Reject(c.Request.Context(), c.Param("id"), req.Notes)
	writeReturn(c, http.StatusOK, r, err)
}
