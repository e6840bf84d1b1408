// Package app wires the checkout service from config. Both the HTTP server and the
// lambda entrypoint build on it.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/service"
)

// App holds the wired components and everything that needs closing on shutdown.
type App struct {
	Config   *config.Config
	Handlers *handlers.Handlers
	Sessions *checkout.Store
	Relay    *service.OrderRelay
	Consumer *events.KafkaConsumer

	db        *sql.DB
	redis     *redis.Client
	publisher events.Publisher
	logger    *logging.LoggerV2
}

// New connects to the configured backing services. Redis is optional: when it cannot be
// reached the catalog cache is disabled and idempotency keys are held in memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		logger: logging.NewLoggerV2("app"),
	}

	var (
		cache       repository.CatalogCache
		idempotency repository.IdempotencyStore = repository.NewMemoryIdempotencyStore()
		orders      repository.OrderRepository  = repository.NewMemoryOrderRepository()
	)

	rdb := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		a.logger.Warn("Redis unavailable, running without catalog cache", logging.Fields{
			"addr":  cfg.Redis.Addr(),
			"error": err.Error(),
		})
		rdb.Close()
	} else {
		a.redis = rdb
		if cfg.Features.EnableCatalogCache {
			cache = repository.NewRedisCatalogCache(rdb, cfg.Redis.TTL)
		}
		idempotency = repository.NewRedisIdempotencyStore(rdb, cfg.Checkout.IdempotencyTTL, logging.NewLoggerV2("idempotency"))
	}

	if cfg.Features.EnableOrderLedger {
		db, err := repository.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db

		if cfg.Env == "development" {
			if _, err := db.ExecContext(ctx, repository.Schema); err != nil {
				a.Close()
				return nil, err
			}
		}
		orders = repository.NewPostgresOrderRepository(db, logging.NewLoggerV2("order-ledger"))
		logging.Info("Database connected", logging.Fields{
			"host": cfg.Database.Host,
			"name": cfg.Database.Name,
		})
	}

	if cfg.Features.EnableOrderEvents {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka, logging.NewLoggerV2("event-publisher"))
	} else {
		a.publisher = events.NopPublisher{}
	}

	serviceToken := clients.StaticCredentials(cfg.Storefront.APIKey)
	storefront := clients.NewHTTPStorefrontClient(cfg.Storefront, serviceToken, logging.NewLoggerV2("storefront-client"))
	adminClient := clients.NewHTTPAdminClient(cfg.Storefront, clients.ContextCredentials{Fallback: serviceToken}, logging.NewLoggerV2("admin-client"))
	takeApp := clients.NewHTTPTakeAppClient(cfg.TakeApp, logging.NewLoggerV2("takeapp-client"))

	a.Relay = service.NewOrderRelay(takeApp, orders, idempotency, a.publisher, cfg)

	var submitter checkout.OrderSubmitter = storefront
	if cfg.Features.EnableLocalRelay {
		submitter = a.Relay
	}

	a.Sessions = checkout.NewStore(cfg.Checkout.SessionTTL)
	checkoutService := service.NewCheckoutService(storefront, cache, submitter, a.publisher, a.Sessions, cfg)
	adminService := service.NewAdminService(adminClient, cache)

	a.Handlers = handlers.NewHandlers(checkoutService, a.Relay, adminService, cfg)

	if cfg.Features.EnablePaymentEvents {
		a.Consumer = events.NewKafkaConsumer(cfg.Kafka, a.Relay, logging.NewLoggerV2("payment-events"))
	}

	return a, nil
}

// Close releases connections. The consumer is stopped by its owner.
func (a *App) Close() {
	if a.publisher != nil {
		if closer, ok := a.publisher.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				a.logger.Error("Failed to close event publisher", logging.Fields{"error": err.Error()})
			}
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
