package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// Admin routes forward the caller's bearer token to the storefront backend, which owns
// authentication. See middleware.ForwardBearer.

// ListResource handles GET /api/v1/admin/:resource
func (h *Handlers) ListResource(c *gin.Context) {
	items, err := h.adminService.List(c.Request.Context(), c.Param("resource"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateResource handles POST /api/v1/admin/:resource
func (h *Handlers) CreateResource(c *gin.Context) {
	resource := c.Param("resource")
	item, err := h.adminService.NewItem(resource)
	if err != nil {
		handleError(c, err)
		return
	}
	if !bindJSON(c, item) {
		return
	}

	created, err := h.adminService.Create(c.Request.Context(), resource, item)
	if err != nil {
		handleError(c, err)
		return
	}

	h.logger.Info("Admin resource created", logging.Fields{"resource": resource})
	c.JSON(http.StatusCreated, created)
}

// UpdateResource handles PUT /api/v1/admin/:resource/:id
func (h *Handlers) UpdateResource(c *gin.Context) {
	resource := c.Param("resource")
	item, err := h.adminService.NewItem(resource)
	if err != nil {
		handleError(c, err)
		return
	}
	if !bindJSON(c, item) {
		return
	}

	updated, err := h.adminService.Update(c.Request.Context(), resource, c.Param("id"), item)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteResource handles DELETE /api/v1/admin/:resource/:id
func (h *Handlers) DeleteResource(c *gin.Context) {
	resource := c.Param("resource")
	if err := h.adminService.Delete(c.Request.Context(), resource, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	h.logger.Info("Admin resource deleted", logging.Fields{"resource": resource, "id": c.Param("id")})
	c.Status(http.StatusNoContent)
}

// ReorderResource handles PUT /api/v1/admin/:resource/reorder
func (h *Handlers) ReorderResource(c *gin.Context) {
	var req models.ReorderRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.adminService.Reorder(c.Request.Context(), c.Param("resource"), &req); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reordered", "count": len(req.IDs)})
}

// UpdateSettings handles PUT /api/v1/admin/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req models.PricingSettings
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.adminService.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
