package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/shipment"
)

func writeShipment(c *gin.Context, status int, s *shipment.Shipment, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(status, toShipment(s))
}

// CreateShipment handles POST /shipments.
func (h *Handler) CreateShipment(c *gin.Context) {
	var req shipmentRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.svc.Shipments.Create(c.Request.Context(), shipment.CreateRequest{
		OrderID:           req.OrderID,
		Carrier:           req.Carrier,
		TrackingNumber:    req.TrackingNumber,
		ShippingCost:      req.ShippingCost,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	writeShipment(c, http.StatusCreated, s, err)
}

// GetOrderShipment handles GET /orders/:id/shipment.
func (h *Handler) GetOrderShipment(c *gin.Context) {
	s, err := h.svc.Shipments.GetByOrder(c.Request.Context(), caller(c), c.Param("id"))
	writeShipment(c, http.StatusOK, s, err)
}

// UpdateShipmentStatus handles PUT /shipments/:id/status.
func (h *Handler) UpdateShipmentStatus(c *gin.Context) {
	var req shipmentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := shipment.ParseStatus(req.Status)
	if err != nil {
		abort(c, err)
		return
	}
	s, err := h.svc.Shipments.UpdateStatus(c.Request.Context(), c.Param("id"), st, req.Location, req.Description)
	writeShipment(c, http.StatusOK, s, err)
}

// AddTrackingNumber handles PUT /shipments/:id/tracking.
func (h *Handler) AddTrackingNumber(c *gin.Context) {
	var req trackingRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.svc.Shipments.AddTrackingNumber(c.Request.Context(), c.Param("id"), req.TrackingNumber)
	writeShipment(c, http.StatusOK, s, err)
}
