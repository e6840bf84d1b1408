package handlers

import (
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/service"
)

// Handlers holds all HTTP handlers for the checkout service.
type Handlers struct {
	checkoutService *service.CheckoutService
	relay           *service.OrderRelay
	adminService    *service.AdminService
	config          *config.Config
	logger          *logging.LoggerV2
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	checkoutService *service.CheckoutService,
	relay *service.OrderRelay,
	adminService *service.AdminService,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		checkoutService: checkoutService,
		relay:           relay,
		adminService:    adminService,
		config:          cfg,
		logger:          logging.NewLoggerV2("handlers"),
	}
}
