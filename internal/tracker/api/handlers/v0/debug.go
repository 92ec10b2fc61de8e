package v0

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

// debugEnvVars are the only environment variables the debug endpoint reveals.
var debugEnvVars = []string{"ENVIRONMENT", "AWS_REGION", "AWS_LAMBDA_FUNCTION_NAME", "STORAGE_BACKEND"}

type DebugBody struct {
	GoVersion            string            `json:"go_version"`
	CurrentDirectory     string            `json:"current_directory"`
	EnvironmentVariables map[string]string `json:"environment_variables"`
	Storage              string            `json:"storage"`
	AuthEnabled          bool              `json:"auth_enabled"`
	Timestamp            time.Time         `json:"timestamp"`
	DataCounts           *models.Stats     `json:"data_counts"`
}

// RegisterDebugEndpoint registers the admin-only runtime information endpoint
func RegisterDebugEndpoint(api huma.API, pathPrefix string, cfg *config.Config, svc service.TrackerService, authz *auth.Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "get-debug" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/debug",
		Summary:     "Debug information",
		Description: "Runtime, environment and record counts. Admin only.",
		Tags:        []string{"admin"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, _ *struct{}) (*Response[DebugBody], error) {
		if _, err := authz.RequireAdmin(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		wd, err := os.Getwd()
		if err != nil {
			wd = "unknown"
		}
		env := make(map[string]string, len(debugEnvVars))
		for _, name := range debugEnvVars {
			v, ok := os.LookupEnv(name)
			if !ok {
				v = "not_set"
			}
			env[name] = v
		}
		return &Response[DebugBody]{
			Body: DebugBody{
				GoVersion:            runtime.Version(),
				CurrentDirectory:     wd,
				EnvironmentVariables: env,
				Storage:              cfg.StorageBackend,
				AuthEnabled:          authz.Enabled(),
				Timestamp:            time.Now().UTC(),
				DataCounts:           stats,
			},
		}, nil
	})
}
