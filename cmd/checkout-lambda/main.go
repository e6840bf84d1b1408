package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/app"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/server"
)

// Sessions live in process memory, so the function must run with a single warm
// instance (reserved concurrency 1) for a checkout dialog to survive between calls.
func main() {
	cfg := config.Load()

	if err := logging.Configure(cfg.Env, cfg.LogLevel); err != nil {
		logging.Infof("Invalid log configuration, keeping defaults: %v", err)
	}
	logger := logging.NewLoggerV2("checkout-lambda")

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialise service", logging.Fields{"error": err.Error()})
	}
	defer a.Close()

	go a.Sessions.Run(ctx, cfg.Checkout.ReapInterval, logging.NewLoggerV2("session-reaper"))

	adapter := ginadapter.New(server.NewRouter(a.Handlers, cfg))

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
