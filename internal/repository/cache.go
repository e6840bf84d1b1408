package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

const (
	productKeyPrefix = "catalog:product:"
	settingsKey      = "catalog:settings"
	defaultCacheTTL  = 5 * time.Minute
)

// NewRedisClient builds the shared redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisCatalogCache implements CatalogCache using Redis. A miss is (nil, nil).
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("catalog-cache"),
	}
}

func (c *RedisCatalogCache) GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error) {
	var product models.Product
	found, err := c.get(ctx, productKeyPrefix+idOrSlug, &product)
	if err != nil || !found {
		return nil, err
	}
	return &product, nil
}

func (c *RedisCatalogCache) SetProduct(ctx context.Context, idOrSlug string, product *models.Product) error {
	return c.set(ctx, productKeyPrefix+idOrSlug, product)
}

func (c *RedisCatalogCache) GetSettings(ctx context.Context) (*models.PricingSettings, error) {
	var settings models.PricingSettings
	found, err := c.get(ctx, settingsKey, &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

func (c *RedisCatalogCache) SetSettings(ctx context.Context, settings *models.PricingSettings) error {
	return c.set(ctx, settingsKey, settings)
}

// InvalidateSettings drops cached settings after an admin update.
func (c *RedisCatalogCache) InvalidateSettings(ctx context.Context) error {
	return c.client.Del(ctx, settingsKey).Err()
}

func (c *RedisCatalogCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"key": key})
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"key": key})
	return true, nil
}

func (c *RedisCatalogCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return err
	}

	c.logger.Debug("Cached", logging.Fields{
		"key": key,
		"ttl": c.ttl.String(),
	})
	return nil
}
