package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/order"
)

func writeOrder(c *gin.Context, status int, o *order.Order, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(status, toOrder(o))
}

func writeOrders(c *gin.Context, list []order.Order, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrders(list))
}

// PlaceOrder handles POST /orders: the caller's cart becomes an order.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.svc.Orders.PlaceOrder(c.Request.Context(), caller(c).UserID, order.PlaceOrderRequest{
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		PaymentMethod:     req.PaymentMethod,
		CouponCode:        req.CouponCode,
	})
	writeOrder(c, http.StatusCreated, o, err)
}

// ListOrders handles GET /orders.
func (h *Handler) ListOrders(c *gin.Context) {
	list, err := h.svc.Orders.ListForUser(c.Request.Context(), caller(c).UserID)
	writeOrders(c, list, err)
}

// GetOrder handles GET /orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.svc.Orders.Get(c.Request.Context(), caller(c), c.Param("id"))
	writeOrder(c, http.StatusOK, o, err)
}

// CancelOrder handles PUT /orders/:id/cancel.
func (h *Handler) CancelOrder(c *gin.Context) {
	o, err := h.svc.Orders.Cancel(c.Request.Context(), caller(c).UserID, c.Param("id"))
	writeOrder(c, http.StatusOK, o, err)
}

// PayOrder handles POST /orders/:id/pay.
func (h *Handler) PayOrder(c *gin.Context) {
	o, err := h.svc.Orders.Pay(c.Request.Context(), caller(c).UserID, c.Param("id"))
	writeOrder(c, http.StatusOK, o, err)
}

// UpdateOrderStatus handles PUT /orders/:id/status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := order.ParseStatus(req.Status)
	if err != nil {
		abort(c, err)
		return
	}
	o, err := h.svc.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), st)
	writeOrder(c, http.StatusOK, o, err)
}

// UpdatePaymentStatus handles PUT /orders/:id/payment.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req paymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ps, err := order.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		abort(c, err)
		return
	}
	o, err := h.svc.Orders.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), ps)
	writeOrder(c, http.StatusOK, o, err)
}

// ListAllOrders handles GET /admin/orders?status=.
func (h *Handler) ListAllOrders(c *gin.Context) {
	var q listQuery
	if !bindQuery(c, &q) {
		return
	}
	var st order.Status
	if q.Status != "" {
		var err error
		if st, err = order.ParseStatus(q.Status); err != nil {
			abort(c, err)
			return
		}
	}
	list, err := h.svc.Orders.ListAll(c.Request.Context(), st)
	writeOrders(c, list, err)
}

// ListSellerOrders handles GET /seller/orders.
func (h *Handler) ListSellerOrders(c *gin.Context) {
	list, err := h.svc.Orders.ListForSeller(c.Request.Context(), caller(c).UserID)
	writeOrders(c, list, err)
}
