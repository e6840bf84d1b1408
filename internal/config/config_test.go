package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "gsn", cfg.TakeApp.StoreAlias)
	assert.Equal(t, 30*time.Minute, cfg.Checkout.SessionTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Features.EnableOrderEvents)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("STOREFRONT_API_URL", "http://backend:8001/api/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHECKOUT_SESSION_TTL", "90")
	t.Setenv("TAKEAPP_TIMEOUT", "5s")
	t.Setenv("FEATURE_ORDER_EVENTS", "false")

	cfg := Load()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://backend:8001/api", cfg.Storefront.BaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Checkout.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.TakeApp.Timeout)
	assert.False(t, cfg.Features.EnableOrderEvents)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("REDIS_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.ConnectionString())
}
