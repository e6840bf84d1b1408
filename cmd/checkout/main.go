package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/app"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/server"
)

func main() {
	cfg := config.Load()

	if err := logging.Configure(cfg.Env, cfg.LogLevel); err != nil {
		logging.Infof("Invalid log configuration, keeping defaults: %v", err)
	}
	logger := logging.NewLoggerV2("checkout-service")

	logging.Infof("Starting checkout-service on port %d", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialise service", logging.Fields{"error": err.Error()})
	}
	defer a.Close()

	go a.Sessions.Run(ctx, cfg.Checkout.ReapInterval, logging.NewLoggerV2("session-reaper"))

	if a.Consumer != nil {
		go func() {
			if err := a.Consumer.Start(ctx); err != nil {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	srv := server.New(a.Handlers, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":                  cfg.Server.Port,
			"enable_local_relay":    cfg.Features.EnableLocalRelay,
			"enable_order_ledger":   cfg.Features.EnableOrderLedger,
			"enable_payment_events": cfg.Features.EnablePaymentEvents,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if a.Consumer != nil {
		a.Consumer.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}
	cancel()

	logger.Info("Server exited")
}
