package types

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// ServiceFactory is a function type that creates a service implementation.
// The base service is provided as input, and the factory should return a service
// that implements TrackerService (and optionally additional behaviour).
type ServiceFactory func(base service.TrackerService) service.TrackerService

// DatabaseFactory creates the storage backend, replacing the one selected by
// STORAGE_BACKEND.
type DatabaseFactory func(ctx context.Context) (database.Database, error)

// AppOptions contains optional hooks for embedding the tracker app.
// All fields are optional.
type AppOptions struct {
	// DatabaseFactory overrides backend selection from the configuration.
	DatabaseFactory DatabaseFactory

	// ServiceFactory is an optional function to create a service that adds new functionality.
	ServiceFactory ServiceFactory

	// OnServiceCreated is an optional callback that receives the created service
	// (potentially extended via ServiceFactory).
	OnServiceCreated func(service.TrackerService)

	// HTTPServerFactory is an optional function to create a server that adds new API routes.
	HTTPServerFactory HTTPServerFactory

	// AuthnProvider replaces bearer token authentication.
	AuthnProvider auth.AuthnProvider

	// IdentityProvider replaces the Google login flow.
	IdentityProvider auth.IdentityProvider
}

// Server represents the HTTP server and provides access to the Huma API
// for registering new routes.
type Server interface {
	// HumaAPI returns the Huma API instance, allowing registration of new routes
	// that will appear in the OpenAPI documentation.
	HumaAPI() huma.API

	// Handler returns the root handler including all middleware.
	Handler() http.Handler

	// Start begins listening for incoming HTTP requests
	Start() error

	// Shutdown gracefully shuts down the server
	Shutdown(ctx context.Context) error
}

// HTTPServerFactory is a function type that creates a server implementation that
// adds new API routes and handlers.
type HTTPServerFactory func(base Server) Server
