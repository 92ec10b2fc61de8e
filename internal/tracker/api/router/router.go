// Package router contains API routing logic
package router

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	v0 "github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/handlers/v0"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/telemetry"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

// Middleware configuration options
type middlewareConfig struct {
	skipPaths map[string]bool
}

type MiddlewareOption func(*middlewareConfig)

// getRoutePath extracts the route pattern from the context
func getRoutePath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil && op.Path != "" {
		return op.Path
	}
	// Fallback to URL path (less ideal for metrics as it includes path parameters)
	return ctx.URL().Path
}

func MetricTelemetryMiddleware(metrics *telemetry.Metrics, options ...MiddlewareOption) func(huma.Context, func(huma.Context)) {
	config := &middlewareConfig{
		skipPaths: make(map[string]bool),
	}
	for _, opt := range options {
		opt(config)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		path := ctx.URL().Path

		// match either the full path or its last segment
		pathParts := strings.Split(path, "/")
		pathToMatch := "/" + pathParts[len(pathParts)-1]
		if metrics == nil || config.skipPaths[pathToMatch] || config.skipPaths[path] {
			next(ctx)
			return
		}

		start := time.Now()
		method := ctx.Method()
		routePath := getRoutePath(ctx)

		next(ctx)

		duration := time.Since(start).Seconds()
		statusCode := ctx.Status()

		attrs := metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", routePath),
			attribute.Int("status_code", statusCode),
		)

		metrics.Requests.Add(ctx.Context(), 1, attrs)
		if statusCode >= 400 {
			metrics.ErrorCount.Add(ctx.Context(), 1, attrs)
		}
		metrics.RequestDuration.Record(ctx.Context(), duration, attrs)
	}
}

// WithSkipPaths allows skipping instrumentation for specific paths
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		for _, path := range paths {
			c.skipPaths[path] = true
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleRoot serves the service description at "/" and a 404 everywhere else
// the mux has no route.
func handleRoot(versionInfo *v0.VersionBody) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
			writeJSON(w, http.StatusOK, "application/json", map[string]string{
				"message":       "Child Allowance Tracker API",
				"status":        "running",
				"version":       versionInfo.Version,
				"documentation": "/docs",
				"health":        "/health",
			})
			return
		}
		handle404(w, r)
	}
}

// handle404 returns a problem document for unknown routes
func handle404(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, "application/problem+json", map[string]any{
		"title":  "Not Found",
		"status": http.StatusNotFound,
		"detail": "Endpoint not found. See /docs for the API documentation.",
	})
}

// NewHumaAPI creates a new Huma API with all routes registered
func NewHumaAPI(mux *http.ServeMux, opts *Options) huma.API {
	humaConfig := huma.DefaultConfig("Child Allowance Tracker", opts.Version.Version)
	humaConfig.Info.Description = "Track children's allowances, chores, transactions and expenditures."
	// Disable $schema property in responses: https://github.com/danielgtaylor/huma/issues/230
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	api := humago.New(mux, humaConfig)

	api.OpenAPI().Tags = []*huma.Tag{
		{Name: "children", Description: "Children and their balances"},
		{Name: "transactions", Description: "Allowance, chore, spending and adjustment transactions"},
		{Name: "chores", Description: "Chores and their completion"},
		{Name: "expenditures", Description: "Recorded purchases"},
		{Name: "reports", Description: "Aggregate reports"},
		{Name: "auth", Description: "Google login and session tokens"},
		{Name: "users", Description: "User accounts"},
		{Name: "admin", Description: "Administrative operations (requires an address in ADMIN_EMAILS)"},
		{Name: "health", Description: "Health check endpoint for monitoring service availability"},
		{Name: "version", Description: "Version information endpoint for retrieving build and version details"},
	}

	// Metrics first, so requests rejected further down are still counted.
	api.UseMiddleware(MetricTelemetryMiddleware(opts.Metrics,
		WithSkipPaths("/health", "/metrics", "/docs", "/openapi.json", "/openapi.yaml"),
	))

	if opts.Authn != nil {
		api.UseMiddleware(auth.AuthnMiddleware(api, opts.Authn))
	}

	RegisterRoutes(api, opts)

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.PrometheusHandler())
	}
	mux.HandleFunc("/", handleRoot(opts.Version))

	return api
}
