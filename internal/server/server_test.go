package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
)

func TestNewRouter_HealthAndRequestID(t *testing.T) {
	cfg := &config.Config{Env: "test"}
	router := NewRouter(handlers.NewHandlers(nil, nil, nil, cfg), cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	cfg := &config.Config{Env: "test"}
	router := NewRouter(handlers.NewHandlers(nil, nil, nil, cfg), cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNew_UsesConfiguredTimeouts(t *testing.T) {
	cfg := config.Load()
	srv := New(handlers.NewHandlers(nil, nil, nil, cfg), cfg)

	assert.Equal(t, cfg.Server.ReadTimeout, srv.httpServer.ReadTimeout)
	assert.Equal(t, cfg.Server.WriteTimeout, srv.httpServer.WriteTimeout)
	assert.NotNil(t, srv.Router())
}
