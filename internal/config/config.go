package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env        string
	LogLevel   string
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Storefront ServiceConfig
	TakeApp    TakeAppConfig
	Checkout   CheckoutConfig
	Features   FeatureFlags
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers       []string
	CheckoutTopic string
	PaymentsTopic string
	ConsumerGroup string
}

// ServiceConfig describes an upstream REST collaborator.
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// TakeAppConfig describes the external order platform.
type TakeAppConfig struct {
	BaseURL    string
	PayBaseURL string
	APIKey     string
	StoreAlias string
	Timeout    time.Duration
}

type CheckoutConfig struct {
	SessionTTL     time.Duration
	ReapInterval   time.Duration
	CurrencyLabel  string
	PhoneCountry   string
	MaxRemarkChars int
	IdempotencyTTL time.Duration
}

type FeatureFlags struct {
	EnableOrderEvents   bool
	EnableCatalogCache  bool
	EnableOrderLedger   bool
	EnablePaymentEvents bool
	// Submit through the in-process relay instead of the storefront's /orders/create.
	EnableLocalRelay    bool
}

func Load() *Config {
	return &Config{
		Env:      getEnvString("APP_ENV", "production"),
		LogLevel: getEnvString("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8085),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "acme"),
			Password:     getEnvString("DB_PASSWORD", "acme"),
			Name:         getEnvString("DB_NAME", "acme_checkout"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			CheckoutTopic: getEnvString("KAFKA_CHECKOUT_TOPIC", "checkout-events"),
			PaymentsTopic: getEnvString("KAFKA_PAYMENTS_TOPIC", "payment-events"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "checkout-service"),
		},
		Storefront: ServiceConfig{
			BaseURL: strings.TrimRight(getEnvString("STOREFRONT_API_URL", "http://localhost:8001/api"), "/"),
			Timeout: getEnvDuration("STOREFRONT_API_TIMEOUT", 15*time.Second),
			APIKey:  getEnvString("STOREFRONT_API_TOKEN", ""),
		},
		TakeApp: TakeAppConfig{
			BaseURL:    strings.TrimRight(getEnvString("TAKEAPP_BASE_URL", "https://take.app/api/platform"), "/"),
			PayBaseURL: strings.TrimRight(getEnvString("TAKEAPP_PAY_BASE_URL", "https://take.app"), "/"),
			APIKey:     getEnvString("TAKEAPP_API_KEY", ""),
			StoreAlias: getEnvString("TAKEAPP_STORE_ALIAS", "gsn"),
			Timeout:    getEnvDuration("TAKEAPP_TIMEOUT", 15*time.Second),
		},
		Checkout: CheckoutConfig{
			SessionTTL:     getEnvDuration("CHECKOUT_SESSION_TTL", 30*time.Minute),
			ReapInterval:   getEnvDuration("CHECKOUT_REAP_INTERVAL", time.Minute),
			CurrencyLabel:  getEnvString("CHECKOUT_CURRENCY_LABEL", "Rs"),
			PhoneCountry:   getEnvString("CHECKOUT_PHONE_COUNTRY_CODE", "977"),
			MaxRemarkChars: getEnvInt("CHECKOUT_MAX_REMARK_CHARS", 1000),
			IdempotencyTTL: getEnvDuration("CHECKOUT_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Features: FeatureFlags{
			EnableOrderEvents:   getEnvBool("FEATURE_ORDER_EVENTS", true),
			EnableCatalogCache:  getEnvBool("FEATURE_CATALOG_CACHE", true),
			EnableOrderLedger:   getEnvBool("FEATURE_ORDER_LEDGER", true),
			EnablePaymentEvents: getEnvBool("FEATURE_PAYMENT_EVENTS", false),
			EnableLocalRelay:    getEnvBool("FEATURE_LOCAL_RELAY", true),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
