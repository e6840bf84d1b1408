package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// HeaderIdempotentReplayed marks a response served from a stored result.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

// CreateOrder handles POST /api/orders/create
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.OrderPayload
	if !bindJSON(c, &req) {
		return
	}

	key := c.GetHeader(middleware.HeaderIdempotencyKey)
	result, replayed, err := h.relay.CreateOrderIdempotent(c.Request.Context(), key, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	if replayed {
		c.Header(HeaderIdempotentReplayed, "true")
	}
	c.JSON(http.StatusOK, result)
}

// ListOrders handles GET /api/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		handleError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		handleError(c, err)
		return
	}

	orders, err := h.relay.ListOrders(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
		"limit":  limit,
		"offset": offset,
	})
}

// GetOrder handles GET /api/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.relay.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// AttachPaymentScreenshot handles POST /api/orders/:id/payment-screenshot
func (h *Handlers) AttachPaymentScreenshot(c *gin.Context) {
	var req models.PaymentScreenshotRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.relay.AttachPaymentScreenshot(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(name, name+" must be an integer")
	}
	return n, nil
}

// TakeAppStore handles GET /api/v1/takeapp/store
func (h *Handlers) TakeAppStore(c *gin.Context) {
	h.takeAppView(c, h.relay.TakeAppStore)
}

// TakeAppOrders handles GET /api/v1/takeapp/orders
func (h *Handlers) TakeAppOrders(c *gin.Context) {
	h.takeAppView(c, h.relay.TakeAppOrders)
}

// TakeAppInventory handles GET /api/v1/takeapp/inventory
func (h *Handlers) TakeAppInventory(c *gin.Context) {
	h.takeAppView(c, h.relay.TakeAppInventory)
}

// takeAppView serves a platform document to admins only. The storefront backend
// decides who is an admin.
func (h *Handlers) takeAppView(c *gin.Context, fetch func(ctx context.Context) (json.RawMessage, error)) {
	ctx := c.Request.Context()
	if err := h.adminService.Authorize(ctx); err != nil {
		handleError(c, err)
		return
	}

	doc, err := fetch(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}
