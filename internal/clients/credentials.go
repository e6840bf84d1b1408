package clients

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
)

// CredentialProvider supplies the bearer token for an outbound request. Clients are
// constructed with one instead of reading a token from shared state.
type CredentialProvider interface {
	Token(ctx context.Context) string
}

// StaticCredentials always returns the same service token.
type StaticCredentials string

func (s StaticCredentials) Token(context.Context) string { return string(s) }

// ContextCredentials forwards the caller's bearer token placed on the context by
// middleware.ForwardBearer, falling back to Fallback when the caller sent none.
type ContextCredentials struct {
	Fallback CredentialProvider
}

func (c ContextCredentials) Token(ctx context.Context) string {
	if token := middleware.BearerFromContext(ctx); token != "" {
		return token
	}
	if c.Fallback != nil {
		return c.Fallback.Token(ctx)
	}
	return ""
}
