package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/coupon"
)

func writeCoupon(c *gin.Context, status int, cp *coupon.Coupon, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(status, toCoupon(cp))
}

// ListCoupons handles GET /coupons.
func (h *Handler) ListCoupons(c *gin.Context) {
	list, err := h.svc.Coupons.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]couponResponse, len(list))
	for i := range list {
		out[i] = toCoupon(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

// GetCouponByCode handles GET /coupons/code/:code.
func (h *Handler) GetCouponByCode(c *gin.Context) {
	cp, err := h.svc.Coupons.GetByCode(c.Request.Context(), c.Param("code"))
	writeCoupon(c, http.StatusOK, cp, err)
}

// ApplyCoupon handles POST /coupons/apply. It prices a purchase without
// placing an order.
func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req couponApplyRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.svc.Coupons.Apply(c.Request.Context(), req.Code, req.Amount)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, couponApplyResponse{
		Code:     app.Coupon.Code,
		Discount: money(app.Discount),
		NewTotal: money(app.NewTotal),
	})
}

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req couponRequest
	if !bindJSON(c, &req) {
		return
	}
	cp, err := h.svc.Coupons.Create(c.Request.Context(), req.input())
	writeCoupon(c, http.StatusCreated, cp, err)
}

// UpdateCoupon handles PUT /coupons/:id.
func (h *Handler) UpdateCoupon(c *gin.Context) {
	var req couponRequest
	if !bindJSON(c, &req) {
		return
	}
	cp, err := h.svc.Coupons.Update(c.Request.Context(), c.Param("id"), req.input())
	writeCoupon(c, http.StatusOK, cp, err)
}

// ActivateCoupon handles PUT /coupons/:id/activate.
func (h *Handler) ActivateCoupon(c *gin.Context) {
	cp, err := h.svc.Coupons.Activate(c.Request.Context(), c.Param("id"))
	writeCoupon(c, http.StatusOK, cp, err)
}

// DeactivateCoupon handles PUT /coupons/:id/deactivate.
func (h *Handler) DeactivateCoupon(c *gin.Context) {
	cp, err := h.svc.Coupons.Deactivate(c.Request.Context(), c.Param("id"))
	writeCoupon(c, http.StatusOK, cp, err)
}

// DeleteCoupon handles DELETE /coupons/:id.
func (h *Handler) DeleteCoupon(c *gin.Context) {
	if err := h.svc.Coupons.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
