// Package tracker assembles storage, authentication and transports into a
// runnable application.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/option"

	"github.com/scottsaenz/child-allowance-tracker/internal/mcp/trackerserver"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/api"
	v0 "github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/handlers/v0"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/router"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	internaldb "github.com/scottsaenz/child-allowance-tracker/internal/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/oauth"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/seed"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/sheets"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/telemetry"
	"github.com/scottsaenz/child-allowance-tracker/internal/version"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
	"github.com/scottsaenz/child-allowance-tracker/pkg/types"
)

const (
	seedTimeout     = time.Minute
	shutdownTimeout = 10 * time.Second
)

// App is a fully wired tracker: storage, service, HTTP API and MCP bridge.
type App struct {
	cfg       *config.Config
	db        database.Database
	service   service.TrackerService
	tokens    *auth.TokenManager
	server    types.Server
	mcpServer *mcp.Server
	mcpHTTP   *http.Server
	closers   []func(context.Context) error
}

// NewApp validates cfg and builds every component it enables. Optional
// integrations (Google login, the spreadsheet mirror) that fail to initialize
// are logged and left off; storage, tokens and metrics failures are fatal.
func NewApp(ctx context.Context, cfg *config.Config, opts ...types.AppOptions) (app *App, err error) {
	var options types.AppOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	app = &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	if options.DatabaseFactory != nil {
		app.db, err = options.DatabaseFactory(ctx)
	} else {
		app.db, err = OpenDatabase(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	denylist, err := openDenylist(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := denylist.(interface{ Close() error }); ok {
		app.closers = append(app.closers, func(context.Context) error { return closer.Close() })
	}

	if cfg.JWTSecretKey != "" {
		app.tokens, err = auth.NewTokenManager(cfg.JWTSecretKey,
			auth.WithTokenDuration(cfg.TokenTTL),
			auth.WithDenylist(denylist),
			auth.WithUserLookup(app.db),
		)
		if err != nil {
			return nil, err
		}
	}

	authz := auth.NewAuthorizer(auth.AuthorizerOptions{
		Enabled:          cfg.AuthEnabled,
		AdminEmails:      cfg.AdminEmails,
		AuthorizedEmails: cfg.AuthorizedEmails,
	})
	if !cfg.AuthEnabled {
		slog.WarnContext(ctx, "authentication disabled; every request runs as the system principal")
	}

	var authn auth.AuthnProvider
	switch {
	case options.AuthnProvider != nil:
		authn = options.AuthnProvider
	case cfg.AuthEnabled && app.tokens != nil:
		authn = app.tokens
	}

	identity := options.IdentityProvider
	if identity == nil && cfg.Google.Enabled() {
		provider, err := oauth.NewGoogleProvider(ctx, oauth.GoogleOptions{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
		})
		if err != nil {
			slog.WarnContext(ctx, "Google login disabled", logging.Err(err))
		} else {
			identity = provider
		}
	}

	var serviceOpts []service.Option
	if cfg.Sheets.Enabled() {
		var clientOpts []option.ClientOption
		if cfg.Sheets.CredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
		}
		mirror, err := sheets.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.RangeName, clientOpts...)
		if err != nil {
			slog.WarnContext(ctx, "spreadsheet mirror disabled", logging.Err(err))
		} else {
			serviceOpts = append(serviceOpts, service.WithExpenditureMirror(mirror))
		}
	}

	app.service = service.NewTrackerService(app.db, serviceOpts...)
	if options.ServiceFactory != nil {
		app.service = options.ServiceFactory(app.service)
	}
	if options.OnServiceCreated != nil {
		options.OnServiceCreated(app.service)
	}

	if cfg.SeedFrom != "" {
		app.importSeed(ctx)
	}

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(app.version())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	app.closers = append(app.closers, shutdownTelemetry)

	baseServer := api.NewServer(&router.Options{
		Config:   cfg,
		Service:  app.service,
		Authz:    authz,
		Authn:    authn,
		Tokens:   app.tokens,
		Identity: identity,
		Metrics:  metrics,
		Version: &v0.VersionBody{
			Version:   app.version(),
			GitCommit: version.GitCommit,
			BuildTime: version.BuildDate,
		},
	})
	app.server = baseServer
	if options.HTTPServerFactory != nil {
		app.server = options.HTTPServerFactory(baseServer)
	}

	app.mcpServer = trackerserver.NewServer(app.service)
	if cfg.MCPPort > 0 {
		var handler http.Handler = mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
			return app.mcpServer
		}, &mcp.StreamableHTTPOptions{})
		if cfg.AuthEnabled {
			handler = mcpAuthMiddleware(authn, authz)(handler)
		}
		app.mcpHTTP = &http.Server{
			Addr:              ":" + strconv.Itoa(int(cfg.MCPPort)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	slog.InfoContext(ctx, "allowance tracker ready",
		"version", app.version(),
		"commit", version.GitCommit,
		logging.Backend(cfg.StorageBackend),
		"auth_enabled", cfg.AuthEnabled,
		"google_login", identity != nil,
	)
	return app, nil
}

// OpenDatabase connects to the backend named by cfg.StorageBackend.
func OpenDatabase(ctx context.Context, cfg *config.Config) (database.Database, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return internaldb.NewMemory(), nil
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := internaldb.NewPostgreSQL(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return db, nil
	case config.BackendSQLite:
		db, err := internaldb.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		return db, nil
	case config.BackendDynamoDB:
		db, err := internaldb.NewDynamoDB(ctx, internaldb.DynamoDBOptions{
			Table:    cfg.DynamoDB.Table,
			Region:   cfg.DynamoDB.Region,
			Endpoint: cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// openDenylist prefers Redis, which survives restarts and is shared between
// instances. Without REDIS_URL revocations only last as long as the process.
func openDenylist(ctx context.Context, cfg *config.Config) (auth.Denylist, error) {
	if cfg.RedisURL == "" {
		return auth.NewMemoryDenylist(), nil
	}
	denylist, err := auth.NewRedisDenylist(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return denylist, nil
}

func (a *App) importSeed(ctx context.Context) {
	ctx, cancel := context.WithTimeout(auth.WithSystemContext(ctx), seedTimeout)
	defer cancel()

	res, err := seed.ImportFromPath(ctx, a.service, a.cfg.SeedFrom)
	if err != nil {
		slog.ErrorContext(ctx, "failed to import seed data", "source", a.cfg.SeedFrom, logging.Err(err))
		return
	}
	slog.InfoContext(ctx, "imported seed data",
		"source", a.cfg.SeedFrom,
		"children_created", res.ChildrenCreated,
		"chores_created", res.ChoresCreated,
	)
}

func (a *App) version() string {
	if a.cfg.Version != "" && a.cfg.Version != "dev" {
		return a.cfg.Version
	}
	return version.Version
}

// Handler returns the HTTP API with all middleware, for serverless adapters.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

func (a *App) Service() service.TrackerService {
	return a.service
}

// Tokens returns nil when no signing secret is configured.
func (a *App) Tokens() *auth.TokenManager {
	return a.tokens
}

func (a *App) MCPServer() *mcp.Server {
	return a.mcpServer
}

// Run serves HTTP (and MCP over HTTP when MCP_PORT is set) until ctx is
// cancelled or a listener fails, then shuts both down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	if a.mcpHTTP != nil {
		go func() {
			slog.Info("MCP HTTP server starting", "address", a.mcpHTTP.Addr)
			if err := a.mcpHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("MCP server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case runErr = <-errCh:
		slog.Error("server failed", logging.Err(runErr))
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(sctx); err != nil {
		slog.Error("Server forced to shutdown", logging.Err(err))
	}
	if a.mcpHTTP != nil {
		if err := a.mcpHTTP.Shutdown(sctx); err != nil {
			slog.Error("MCP server forced to shutdown", logging.Err(err))
		}
	}
	slog.Info("Server exiting")
	return runErr
}

// Close releases everything NewApp opened, in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errList []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errList = append(errList, err)
		}
	}
	a.closers = nil
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close database: %w", err))
		}
		a.db = nil
	}
	return errors.Join(errList...)
}

// mcpAuthMiddleware applies the HTTP API's rules to the MCP endpoint: a valid
// bearer token of an active user is required.
func mcpAuthMiddleware(authn auth.AuthnProvider, authz *auth.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if authn != nil {
				session, err := authn.Authenticate(ctx, r.Header.Get, r.URL.Query())
				if err != nil {
					http.Error(w, errs.Message(err), errs.KindOf(err).HTTPStatus())
					return
				}
				if session != nil {
					ctx = auth.AuthSessionTo(ctx, session)
				}
			}
			if _, err := authz.RequireUser(ctx); err != nil {
				http.Error(w, errs.Message(err), errs.KindOf(err).HTTPStatus())
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
