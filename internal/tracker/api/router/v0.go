// Package router contains API routing logic
package router

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	v0 "github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/handlers/v0"
	v0auth "github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/handlers/v0/auth"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/telemetry"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

// routePrefixes lists where every route is mounted. The unprefixed paths are
// the ones existing clients use.
var routePrefixes = []string{"", "/v0"}

// Options carries everything route registration needs.
type Options struct {
	Config  *config.Config
	Service service.TrackerService
	Authz   *auth.Authorizer
	// Authn resolves bearer tokens; nil leaves every request anonymous.
	Authn    auth.AuthnProvider
	Tokens   *auth.TokenManager
	Identity auth.IdentityProvider
	Metrics  *telemetry.Metrics
	Version  *v0.VersionBody
}

// RegisterRoutes registers all API routes under every prefix
// This is the single entry point for all route registration
func RegisterRoutes(api huma.API, opts *Options) {
	authHandler := &v0auth.Handler{
		Service:       opts.Service,
		Authz:         opts.Authz,
		Tokens:        opts.Tokens,
		Identity:      opts.Identity,
		TokenTTL:      tokenTTL(opts.Config),
		SecureCookies: opts.Config.Environment == "production",
	}
	for _, prefix := range routePrefixes {
		registerCommonEndpoints(api, prefix, opts)
		v0.RegisterChildrenEndpoints(api, prefix, opts.Service, opts.Authz)
		v0.RegisterTransactionsEndpoints(api, prefix, opts.Service, opts.Authz, opts.Metrics)
		v0.RegisterChoresEndpoints(api, prefix, opts.Service, opts.Authz, opts.Metrics)
		v0.RegisterExpendituresEndpoints(api, prefix, opts.Service, opts.Authz)
		v0.RegisterReportsEndpoints(api, prefix, opts.Service, opts.Authz)
		v0.RegisterUsersEndpoints(api, prefix, opts.Service, opts.Authz)
		v0.RegisterDebugEndpoint(api, prefix, opts.Config, opts.Service, opts.Authz)
		v0auth.RegisterAuthEndpoints(api, prefix, authHandler)
	}
}

func tokenTTL(cfg *config.Config) time.Duration {
	if cfg.TokenTTL > 0 {
		return cfg.TokenTTL
	}
	return auth.DefaultTokenDuration
}

// registerCommonEndpoints registers the unauthenticated service endpoints
func registerCommonEndpoints(api huma.API, pathPrefix string, opts *Options) {
	v0.RegisterHealthEndpoint(api, pathPrefix, opts.Config, opts.Service, opts.Version)
	v0.RegisterVersionEndpoint(api, pathPrefix, opts.Version)
}
