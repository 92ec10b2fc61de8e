package v0

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
)

const serviceName = "child-allowance-tracker"

// HealthBody represents the health check response body
type HealthBody struct {
	Status      string    `json:"status" example:"healthy"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service" example:"child-allowance-tracker"`
	Version     string    `json:"version" example:"1.0.0"`
	Environment string    `json:"environment" example:"development"`
	Storage     string    `json:"storage" example:"memory"`
}

type HealthOutput struct {
	Status int
	Body   HealthBody
}

// VersionBody represents the version information
type VersionBody struct {
	Version   string `json:"version" example:"v1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123d" doc:"Git commit SHA"`
	BuildTime string `json:"build_time" example:"2025-10-14T12:00:00Z" doc:"Build timestamp"`
}

// RegisterHealthEndpoint registers the health check endpoint with a custom path prefix
func RegisterHealthEndpoint(api huma.API, pathPrefix string, cfg *config.Config, svc service.TrackerService, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/health",
		Summary:     "Health check",
		Description: "Check the health status of the API and its storage backend",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{
			Status: http.StatusOK,
			Body: HealthBody{
				Status:      "healthy",
				Timestamp:   time.Now().UTC(),
				Service:     serviceName,
				Version:     versionInfo.Version,
				Environment: cfg.Environment,
				Storage:     cfg.StorageBackend,
			},
		}
		if err := svc.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", logging.Err(err))
			out.Status = http.StatusServiceUnavailable
			out.Body.Status = "unhealthy"
		}
		return out, nil
	})
}

// RegisterVersionEndpoint registers the version information endpoint
func RegisterVersionEndpoint(api huma.API, pathPrefix string, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/version",
		Summary:     "Get version information",
		Description: "Returns the version, git commit, and build time of the running binary",
		Tags:        []string{"version"},
	}, func(_ context.Context, _ *struct{}) (*Response[VersionBody], error) {
		return &Response[VersionBody]{Body: *versionInfo}, nil
	})
}
