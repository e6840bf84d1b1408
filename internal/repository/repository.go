package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

var (
	_ OrderRepository  = (*PostgresOrderRepository)(nil)
	_ OrderRepository  = (*MemoryOrderRepository)(nil)
	_ CatalogCache     = (*RedisCatalogCache)(nil)
	_ IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
)

// OrderRepository is the local ledger of orders relayed to the order platform.
type OrderRepository interface {
	Create(ctx context.Context, order *models.LocalOrder) error
	GetByID(ctx context.Context, id string) (*models.LocalOrder, error)
	GetByTakeAppID(ctx context.Context, takeAppOrderID string) (*models.LocalOrder, error)
	List(ctx context.Context, limit, offset int) ([]*models.LocalOrder, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.LocalOrder, error)
	SetPaymentScreenshot(ctx context.Context, id, screenshotURL string) (*models.LocalOrder, error)
}

// CatalogCache caches storefront reads that checkout performs on every session open.
type CatalogCache interface {
	GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error)
	SetProduct(ctx context.Context, idOrSlug string, product *models.Product) error
	GetSettings(ctx context.Context) (*models.PricingSettings, error)
	SetSettings(ctx context.Context, settings *models.PricingSettings) error
	InvalidateSettings(ctx context.Context) error
}

// IdempotencyStore guards order creation against client retries.
type IdempotencyStore interface {
	// Begin claims key. started is false when a record already exists; the existing
	// record is returned so the caller can replay or reject.
	Begin(ctx context.Context, key string) (rec *IdempotencyRecord, started bool, err error)
	Complete(ctx context.Context, key string, result *models.OrderResult) error
	Fail(ctx context.Context, key, note string) error
}

// OpenPostgres opens the ledger database and applies pool limits.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
