package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	BearerKey    contextKey = "bearer_token"

	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// RequestID assigns a request id (or keeps the caller's) and stores it on both the gin
// context and the request context so outbound clients can propagate it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(string(RequestIDKey), requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey, requestID))
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// ForwardBearer copies the caller's bearer token onto the request context. Admin calls
// relay it to the backend, which owns authentication.
func ForwardBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), BearerKey, token))
		}
		c.Next()
	}
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// BearerFromContext returns the forwarded bearer token or "".
func BearerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(BearerKey).(string); ok {
		return v
	}
	return ""
}
