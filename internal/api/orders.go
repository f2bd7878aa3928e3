package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Checkout interface {
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*checkout.Receipt, error)
}

type Orders interface {
	Get(ctx context.Context, userID, orderID int64) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
	ListAll(ctx context.Context, status models.OrderStatus, page, pageSize int) (*store.OffsetPage[models.Order], error)
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error)
}

type OrderHandler struct {
	checkout Checkout
	orders   Orders
	logger   *zap.Logger
}

func NewOrderHandler(placer Checkout, orders Orders, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{checkout: placer, orders: orders, logger: logger}
}

// createOrderRequest accepts either shipping_address_id or the address
// fields inline.
type createOrderRequest struct {
	ShippingAddressID int64                 `json:"shipping_address_id"`
	ShippingMethod    models.ShippingMethod `json:"shipping_method"`
	PaymentMethod     string                `json:"payment_method"`
	AddressLine1      string                `json:"address_line1"`
	AddressLine2      *string               `json:"address_line2"`
	City              string                `json:"city"`
	State             string                `json:"state"`
	PostalCode        string                `json:"postal_code"`
	Country           string                `json:"country"`
}

func (r createOrderRequest) toPlaceOrder(userID int64, idempotencyKey string) checkout.PlaceOrderRequest {
	req := checkout.PlaceOrderRequest{
		UserID:            userID,
		ShippingAddressID: r.ShippingAddressID,
		ShippingMethod:    r.ShippingMethod,
		PaymentMethod:     r.PaymentMethod,
		IdempotencyKey:    idempotencyKey,
	}
	if r.ShippingAddressID <= 0 {
		req.ShippingAddress = &checkout.AddressInput{
			AddressLine1: r.AddressLine1,
			AddressLine2: r.AddressLine2,
			City:         r.City,
			State:        r.State,
			PostalCode:   r.PostalCode,
			Country:      r.Country,
		}
	}
	return req
}

type orderSummary struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		abortMessage(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body createOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	receipt, err := h.checkout.PlaceOrder(c.Request.Context(), body.toPlaceOrder(user.ID, c.GetHeader("Idempotency-Key")))
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"message": "Order created successfully",
		"order": orderSummary{
			ID:          receipt.OrderID,
			OrderNumber: receipt.OrderNumber,
			Total:       receipt.Total,
		},
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		abortMessage(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID"})
		return
	}

	order, err := h.orders.Get(c.Request.Context(), user.ID, orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		abortMessage(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	page, err := h.orders.ListForUser(c.Request.Context(), user.ID, c.Query("cursor"), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.orders.ListAll(c.Request.Context(), models.OrderStatus(c.Query("status")), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID"})
		return
	}

	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Status is required"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), orderID, body.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	traceID := ""
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		traceID = sc.TraceID().String()
	}
	h.logger.Info("Order status changed by admin",
		zap.String("trace_id", traceID),
		zap.Int64("order_id", orderID),
		zap.String("status", string(order.Status)),
	)

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}
