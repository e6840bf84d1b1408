package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every endpoint of the service on r.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/live", h.Live)
	r.GET("/version", h.GetVersion)
	r.GET("/metrics", h.Metrics())

	sessions := r.Group("/api/v1/checkout/sessions")
	{
		sessions.POST("", h.OpenSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.CloseSession)
		sessions.PUT("/:id/variation", h.SelectVariation)
		sessions.POST("/:id/promo", h.ApplyPromo)
		sessions.DELETE("/:id/promo", h.RemovePromo)
		sessions.PUT("/:id/form", h.UpdateForm)
		sessions.POST("/:id/submit", h.Submit)
		sessions.GET("/:id/payment", h.PaymentRedirect)
		sessions.POST("/:id/reopen", h.Reopen)
	}

	orders := r.Group("/api/orders")
	{
		orders.POST("/create", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/payment-screenshot", h.AttachPaymentScreenshot)
	}

	admin := r.Group("/api/v1/admin")
	{
		admin.PUT("/settings", h.UpdateSettings)
		admin.GET("/:resource", h.ListResource)
		admin.POST("/:resource", h.CreateResource)
		admin.PUT("/:resource/reorder", h.ReorderResource)
		admin.PUT("/:resource/:id", h.UpdateResource)
		admin.DELETE("/:resource/:id", h.DeleteResource)
	}

	takeApp := r.Group("/api/v1/takeapp")
	{
		takeApp.GET("/store", h.TakeAppStore)
		takeApp.GET("/orders", h.TakeAppOrders)
		takeApp.GET("/inventory", h.TakeAppInventory)
	}
}
