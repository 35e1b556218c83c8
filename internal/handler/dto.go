package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/returns"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/shipment"
)

// Money is rendered as a fixed two-decimal string to avoid float rounding
// on the client.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// Catalog.

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId" binding:"required"`
	ImageURL    string          `json:"imageUrl"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		CategoryID:  r.CategoryID,
		ImageURL:    r.ImageURL,
	}
}

type productQuery struct {
	CategoryID string `form:"category"`
	SellerID   string `form:"seller"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	CategoryID  string    `json:"categoryId"`
	SellerID    string    `json:"sellerId"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (h *Handler) product(p *catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		SellerID:    p.SellerID,
		ImageURL:    h.imageURL(p.ImageURL),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type categoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toCategory(c *catalog.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description}
}

// Cart.

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"max=10000"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"max=10000"`
}

type cartLineResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	InStock   bool   `json:"inStock"`
}

type cartResponse struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Items      []cartLineResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice string             `json:"totalPrice"`
}

func toCart(v *cart.View) cartResponse {
	resp := cartResponse{
		ID:         v.ID,
		UserID:     v.UserID,
		Items:      make([]cartLineResponse, len(v.Lines)),
		TotalItems: v.TotalItems,
		TotalPrice: money(v.TotalPrice),
	}
	for i, l := range v.Lines {
		resp.Items[i] = cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			Subtotal:  money(l.Subtotal),
			InStock:   l.InStock,
		}
	}
	return resp
}

// Addresses.

type addressRequest struct {
	Name          string `json:"name"`
	RecipientName string `json:"recipientName"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	Phone         string `json:"phone"`
	IsDefault     bool   `json:"isDefault"`
}

func (r addressRequest) input() address.Input {
	return address.Input{
		Name:          r.Name,
		RecipientName: r.RecipientName,
		Line1:         r.Line1,
		Line2:         r.Line2,
		City:          r.City,
		State:         r.State,
		PostalCode:    r.PostalCode,
		Country:       r.Country,
		Phone:         r.Phone,
		IsDefault:     r.IsDefault,
	}
}

type addressResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	RecipientName string    `json:"recipientName"`
	Line1         string    `json:"line1"`
	Line2         string    `json:"line2,omitempty"`
	City          string    `json:"city"`
	State         string    `json:"state,omitempty"`
	PostalCode    string    `json:"postalCode"`
	Country       string    `json:"country"`
	Phone         string    `json:"phone,omitempty"`
	IsDefault     bool      `json:"isDefault"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toAddress(a *address.Address) addressResponse {
	return addressResponse{
		ID:            a.ID,
		Name:          a.Name,
		RecipientName: a.RecipientName,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		Phone:         a.Phone,
		IsDefault:     a.IsDefault,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// Coupons.

type couponRequest struct {
	Code              string           `json:"code" binding:"required"`
	Description       string           `json:"description"`
	DiscountAmount    *decimal.Decimal `json:"discountAmount"`
	DiscountPercent   *decimal.Decimal `json:"discountPercent"`
	MinPurchaseAmount *decimal.Decimal `json:"minPurchaseAmount"`
	ValidFrom         time.Time        `json:"validFrom"`
	ValidTo           time.Time        `json:"validTo"`
	IsActive          *bool            `json:"isActive"`
}

func (r couponRequest) input() coupon.Input {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return coupon.Input{
		Code:              r.Code,
		Description:       r.Description,
		DiscountAmount:    toNull(r.DiscountAmount),
		DiscountPercent:   toNull(r.DiscountPercent),
		MinPurchaseAmount: toNull(r.MinPurchaseAmount),
		ValidFrom:         r.ValidFrom,
		ValidTo:           r.ValidTo,
		IsActive:          active,
	}
}

type couponApplyRequest struct {
	Code   string          `json:"code" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type couponResponse struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Description       string    `json:"description,omitempty"`
	DiscountType      string    `json:"discountType"`
	DiscountAmount    *string   `json:"discountAmount,omitempty"`
	DiscountPercent   *string   `json:"discountPercent,omitempty"`
	MinPurchaseAmount *string   `json:"minPurchaseAmount,omitempty"`
	ValidFrom         time.Time `json:"validFrom"`
	ValidTo           time.Time `json:"validTo"`
	IsActive          bool      `json:"isActive"`
}

func toCoupon(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      string(c.Type()),
		DiscountAmount:    nullMoney(c.DiscountAmount),
		DiscountPercent:   nullMoney(c.DiscountPercent),
		MinPurchaseAmount: nullMoney(c.MinPurchaseAmount),
		ValidFrom:         c.ValidFrom,
		ValidTo:           c.ValidTo,
		IsActive:          c.IsActive,
	}
}

type couponApplyResponse struct {
	Code     string `json:"code"`
	Discount string `json:"discount"`
	NewTotal string `json:"newTotal"`
}

// Orders.

type placeOrderRequest struct {
	ShippingAddressID string `json:"shippingAddressId" binding:"required"`
	BillingAddressID  string `json:"billingAddressId"`
	PaymentMethod     string `json:"paymentMethod" binding:"required"`
	CouponCode        string `json:"couponCode"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

type listQuery struct {
	Status string `form:"status"`
}

type orderItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	UserID            string              `json:"userId"`
	Items             []orderItemResponse `json:"items"`
	ShippingAddressID string              `json:"shippingAddressId"`
	BillingAddressID  string              `json:"billingAddressId"`
	CouponCode        string              `json:"couponCode,omitempty"`
	Subtotal          string              `json:"subtotal"`
	Discount          string              `json:"discount"`
	Total             string              `json:"total"`
	Status            order.Status        `json:"status"`
	PaymentStatus     order.PaymentStatus `json:"paymentStatus"`
	PaymentMethod     string              `json:"paymentMethod"`
	PaymentReference  string              `json:"paymentReference,omitempty"`
	RefundedAmount    string              `json:"refundedAmount"`
	OrderDate         time.Time           `json:"orderDate"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func toOrder(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		Items:             make([]orderItemResponse, len(o.Items)),
		ShippingAddressID: o.ShippingAddressID,
		BillingAddressID:  o.BillingAddressID,
		CouponCode:        o.CouponCode,
		Subtotal:          money(o.Subtotal),
		Discount:          money(o.Discount),
		Total:             money(o.Total),
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		PaymentMethod:     o.PaymentMethod,
		PaymentReference:  o.PaymentReference,
		RefundedAmount:    money(o.RefundedAmount),
		OrderDate:         o.OrderDate,
		UpdatedAt:         o.UpdatedAt,
	}
	for i, it := range o.Items {
		resp.Items[i] = orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			Subtotal:    money(it.Subtotal()),
		}
	}
	return resp
}

func toOrders(list []order.Order) []orderResponse {
	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = toOrder(&list[i])
	}
	return out
}

// Returns.

type returnItemRequest struct {
	OrderItemID string `json:"orderItemId" binding:"required"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
	Condition   string `json:"condition"`
	Comments    string `json:"comments"`
}

type returnRequest struct {
	OrderID string              `json:"orderId" binding:"required"`
	Reason  string              `json:"reason"`
	Items   []returnItemRequest `json:"items"`
}

func (r returnRequest) request() returns.CreateRequest {
	req := returns.CreateRequest{
		OrderID: r.OrderID,
		Reason:  r.Reason,
		Items:   make([]returns.ItemRequest, len(r.Items)),
	}
	for i, it := range r.Items {
		req.Items[i] = returns.ItemRequest{
			OrderItemID: it.OrderItemID,
			Quantity:    it.Quantity,
			Reason:      returns.Reason(it.Reason),
			Condition:   returns.Condition(it.Condition),
			Comments:    it.Comments,
		}
	}
	return req
}

type returnStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type returnItemResponse struct {
	ID          string            `json:"id"`
	OrderItemID string            `json:"orderItemId"`
	ProductID   string            `json:"productId"`
	Quantity    int               `json:"quantity"`
	Reason      returns.Reason    `json:"reason"`
	Condition   returns.Condition `json:"condition"`
	Comments    string            `json:"comments,omitempty"`
}

type returnResponse struct {
	ID           string               `json:"id"`
	OrderID      string               `json:"orderId"`
	UserID       string               `json:"userId"`
	Status       returns.Status       `json:"status"`
	Reason       string               `json:"reason"`
	Items        []returnItemResponse `json:"items"`
	RefundAmount *string              `json:"refundAmount,omitempty"`
	RefundStatus returns.RefundStatus `json:"refundStatus"`
	Notes        string               `json:"notes,omitempty"`
	ReturnDate   time.Time            `json:"returnDate"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func toReturn(r *returns.Return) returnResponse {
	resp := returnResponse{
		ID:           r.ID,
		OrderID:      r.OrderID,
		UserID:       r.UserID,
		Status:       r.Status,
		Reason:       r.Reason,
		Items:        make([]returnItemResponse, len(r.Items)),
		RefundAmount: nullMoney(r.RefundAmount),
		RefundStatus: r.RefundStatus,
		Notes:        r.Notes,
		ReturnDate:   r.ReturnDate,
		UpdatedAt:    r.UpdatedAt,
	}
	for i, it := range r.Items {
		resp.Items[i] = returnItemResponse{
			ID:          it.ID,
			OrderItemID: it.OrderItemID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Reason:      it.Reason,
			Condition:   it.Condition,
			Comments:    it.Comments,
		}
	}
	return resp
}

func toReturns(list []returns.Return) []returnResponse {
	out := make([]returnResponse, len(list))
	for i := range list {
		out[i] = toReturn(&list[i])
	}
	return out
}

// Shipments.

type shipmentRequest struct {
	OrderID           string          `json:"orderId" binding:"required"`
	Carrier           string          `json:"carrier" binding:"required"`
	TrackingNumber    string          `json:"trackingNumber"`
	ShippingCost      decimal.Decimal `json:"shippingCost"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery"`
}

type shipmentStatusRequest struct {
	Status      string `json:"status" binding:"required"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type trackingRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required"`
}

type shipmentUpdateResponse struct {
	ID          string          `json:"id"`
	Status      shipment.Status `json:"status"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

type shipmentResponse struct {
	ID                string                   `json:"id"`
	OrderID           string                   `json:"orderId"`
	Carrier           string                   `json:"carrier"`
	TrackingNumber    string                   `json:"trackingNumber,omitempty"`
	Status            shipment.Status          `json:"status"`
	ShippingCost      string                   `json:"shippingCost"`
	EstimatedDelivery *time.Time               `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time               `json:"actualDelivery,omitempty"`
	Updates           []shipmentUpdateResponse `json:"updates"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

func toShipment(s *shipment.Shipment) shipmentResponse {
	resp := shipmentResponse{
		ID:                s.ID,
		OrderID:           s.OrderID,
		Carrier:           s.Carrier,
		TrackingNumber:    s.TrackingNumber,
		Status:            s.Status,
		ShippingCost:      money(s.ShippingCost),
		EstimatedDelivery: s.EstimatedDelivery,
		ActualDelivery:    s.ActualDelivery,
		Updates:           make([]shipmentUpdateResponse, len(s.Updates)),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	for i, u := range s.Updates {
		resp.Updates[i] = shipmentUpdateResponse{
			ID:          u.ID,
			Status:      u.Status,
			Location:    u.Location,
			Description: u.Description,
			Timestamp:   u.Timestamp,
		}
	}
	return resp
}

// Reviews.

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required"`
}

func (r reviewRequest) input() review.Input {
	return review.Input{Rating: r.Rating, Comment: r.Comment}
}

type reviewResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toReview(r *review.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
