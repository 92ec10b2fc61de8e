// Command lambda serves the HTTP API from AWS Lambda behind an API Gateway
// HTTP API (payload format 2.0).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("failed to load configuration", logging.Err(err))
		os.Exit(1)
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		slog.Error("invalid logging configuration", logging.Err(err))
		os.Exit(1)
	}
	// Throttling is left to API Gateway; limiter state would be per container.
	cfg.RateLimitRPS = 0
	cfg.MCPPort = 0

	app, err := tracker.NewApp(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", logging.Err(err))
		os.Exit(1)
	}

	lambda.Start(httpadapter.NewV2(app.Handler()).ProxyWithContext)
}
