package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
)

type openSessionRequest struct {
	Product string `json:"product" binding:"required"`
}

type selectVariationRequest struct {
	VariationID string `json:"variation_id" binding:"required"`
}

type applyPromoRequest struct {
	Code string `json:"code"`
}

type submitResponse struct {
	Session checkout.View `json:"session"`
	Warning string        `json:"warning,omitempty"`
}

// OpenSession handles POST /api/v1/checkout/sessions
func (h *Handlers) OpenSession(c *gin.Context) {
	var req openSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkoutService.OpenSession(c.Request.Context(), req.Product)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSession handles GET /api/v1/checkout/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	view, err := h.checkoutService.View(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SelectVariation handles PUT /api/v1/checkout/sessions/:id/variation
func (h *Handlers) SelectVariation(c *gin.Context) {
	var req selectVariationRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkoutService.SelectVariation(c.Param("id"), req.VariationID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ApplyPromo handles POST /api/v1/checkout/sessions/:id/promo
func (h *Handlers) ApplyPromo(c *gin.Context) {
	var req applyPromoRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkoutService.ApplyPromo(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// RemovePromo handles DELETE /api/v1/checkout/sessions/:id/promo
func (h *Handlers) RemovePromo(c *gin.Context) {
	view, err := h.checkoutService.RemovePromo(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdateForm handles PUT /api/v1/checkout/sessions/:id/form
func (h *Handlers) UpdateForm(c *gin.Context) {
	var req checkout.FormInput
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkoutService.UpdateForm(c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Submit handles POST /api/v1/checkout/sessions/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	view, warning, err := h.checkoutService.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	resp := submitResponse{Session: view}
	if warning != nil {
		resp.Warning = warning.Error()
		h.logger.Warn("Order placed without payment link", logging.Fields{"session_id": view.ID})
	}
	c.JSON(http.StatusOK, resp)
}

// PaymentRedirect handles GET /api/v1/checkout/sessions/:id/payment
func (h *Handlers) PaymentRedirect(c *gin.Context) {
	url, err := h.checkoutService.PaymentRedirect(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_url": url})
}

// Reopen handles POST /api/v1/checkout/sessions/:id/reopen
func (h *Handlers) Reopen(c *gin.Context) {
	view, err := h.checkoutService.Reopen(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CloseSession handles DELETE /api/v1/checkout/sessions/:id
func (h *Handlers) CloseSession(c *gin.Context) {
	if err := h.checkoutService.Close(c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
