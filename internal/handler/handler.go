// Package handler exposes the storefront services over a JSON REST API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/returns"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/shipment"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Services groups the domain services served over HTTP.
type Services struct {
	Catalog   *catalog.Service
	Carts     *cart.Service
	Addresses *address.Service
	Coupons   *coupon.Service
	Orders    *order.Service
	Returns   *returns.Service
	Shipments *shipment.Service
	Reviews   *review.Service
}

// Handler translates HTTP requests into service calls.
type Handler struct {
	svc          Services
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, svc Services) *Handler {
	return &Handler{
		svc:          svc,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// NewRouter returns a gin engine serving the API under /api. Global
// concerns (recovery, logging, tracing) are applied by the caller's
// net/http middleware chain.
func NewRouter(h *Handler, sec *SecurityHandler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		abort(c, apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
	})

	api := r.Group("/api", sec.Authenticate())
	h.Register(api)
	return r
}

// Register mounts every route on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	var (
		authed = requireAuth()
		admin  = requireRole(auth.RoleAdmin)
		seller = requireRole(auth.RoleSeller, auth.RoleAdmin)
	)

	g.GET("/products", h.ListProducts)
	g.GET("/products/:id", h.GetProduct)
	g.POST("/products", seller, h.CreateProduct)
	g.PUT("/products/:id", seller, h.UpdateProduct)
	g.GET("/products/:id/reviews", h.ListProductReviews)
	g.POST("/products/:id/reviews", authed, h.CreateReview)
	g.PUT("/reviews/:id", authed, h.UpdateReview)
	g.DELETE("/reviews/:id", authed, h.DeleteReview)
	g.GET("/categories", h.ListCategories)
	g.POST("/categories", admin, h.CreateCategory)

	cartGroup := g.Group("/cart", authed)
	cartGroup.GET("", h.GetCart)
	cartGroup.POST("/items", h.AddCartItem)
	cartGroup.PUT("/items/:productId", h.UpdateCartItem)
	cartGroup.DELETE("/items/:productId", h.RemoveCartItem)
	cartGroup.DELETE("", h.ClearCart)

	addresses := g.Group("/addresses", authed)
	addresses.GET("", h.ListAddresses)
	addresses.GET("/:id", h.GetAddress)
	addresses.POST("", h.CreateAddress)
	addresses.PUT("/:id", h.UpdateAddress)
	addresses.DELETE("/:id", h.DeleteAddress)
	addresses.PUT("/:id/default", h.SetDefaultAddress)

	g.GET("/coupons", admin, h.ListCoupons)
	g.GET("/coupons/code/:code", authed, h.GetCouponByCode)
	g.POST("/coupons/apply", authed, h.ApplyCoupon)
	g.POST("/coupons", admin, h.CreateCoupon)
	g.PUT("/coupons/:id", admin, h.UpdateCoupon)
	g.PUT("/coupons/:id/activate", admin, h.ActivateCoupon)
	g.PUT("/coupons/:id/deactivate", admin, h.DeactivateCoupon)
	g.DELETE("/coupons/:id", admin, h.DeleteCoupon)

	g.POST("/orders", authed, h.PlaceOrder)
	g.GET("/orders", authed, h.ListOrders)
	g.GET("/orders/:id", authed, h.GetOrder)
	g.PUT("/orders/:id/cancel", authed, h.CancelOrder)
	g.POST("/orders/:id/pay", authed, h.PayOrder)
	g.PUT("/orders/:id/status", admin, h.UpdateOrderStatus)
	g.PUT("/orders/:id/payment", admin, h.UpdatePaymentStatus)
	g.GET("/orders/:id/returns", authed, h.ListOrderReturns)
	g.GET("/orders/:id/shipment", authed, h.GetOrderShipment)
	g.GET("/admin/orders", admin, h.ListAllOrders)
	g.GET("/seller/orders", seller, h.ListSellerOrders)

	g.POST("/returns", authed, h.CreateReturn)
	g.GET("/returns", authed, h.ListReturns)
	g.GET("/returns/:id", authed, h.GetReturn)
	g.PUT("/returns/:id/status", admin, h.UpdateReturnStatus)
	g.PUT("/returns/:id/refund", admin, h.ProcessRefund)
	g.PUT("/returns/:id/reject", admin, h.RejectReturn)
	g.GET("/admin/returns", admin, h.ListAllReturns)

	g.POST("/shipments", admin, h.CreateShipment)
	g.PUT("/shipments/:id/status", admin, h.UpdateShipmentStatus)
	g.PUT("/shipments/:id/tracking", admin, h.AddTrackingNumber)
}
