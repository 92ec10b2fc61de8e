package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/cors"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/router"
)

// TrailingSlashMiddleware redirects requests with trailing slashes to their canonical form
func TrailingSlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			// Create a copy of the URL and remove the trailing slash
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(r.URL.Path, "/")

			// Use 308 Permanent Redirect to preserve the request method
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Server represents the HTTP server
type Server struct {
	opts        *router.Options
	humaAPI     huma.API
	mux         *http.ServeMux
	handler     http.Handler
	rateLimiter *RateLimiter
	server      *http.Server
}

// HumaAPI returns the Huma API instance, allowing registration of new routes
func (s *Server) HumaAPI() huma.API {
	return s.humaAPI
}

// Handler returns the full middleware stack, for adapters that do not listen
// on a socket themselves (Lambda, tests).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// NewServer creates a new HTTP server
func NewServer(opts *router.Options) *Server {
	mux := http.NewServeMux()
	api := router.NewHumaAPI(mux, opts)

	// The browser frontend sends bearer tokens, not cookies, so a wildcard
	// origin is safe here.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Type", "Content-Length", "Location"},
		AllowCredentials: false, // Must be false when AllowedOrigins is "*"
		MaxAge:           86400, // 24 hours
	})

	// Order: TrailingSlash -> RateLimit -> CORS -> Mux
	var handler http.Handler = corsHandler.Handler(mux)
	var limiter *RateLimiter
	if opts.Config.RateLimitRPS > 0 {
		var limiterOpts []RateLimiterOption
		if proxies, err := opts.Config.TrustedProxyPrefixes(); err != nil {
			slog.Warn("ignoring TRUSTED_PROXIES", "error", err)
		} else if len(proxies) > 0 {
			limiterOpts = append(limiterOpts, WithTrustedProxies(proxies))
		}
		limiter = NewRateLimiter(opts.Config.RateLimitRPS, opts.Config.RateLimitBurst, limiterOpts...)
		handler = limiter.Middleware(handler)
	}
	handler = TrailingSlashMiddleware(handler)

	return &Server{
		opts:        opts,
		humaAPI:     api,
		mux:         mux,
		handler:     handler,
		rateLimiter: limiter,
		server: &http.Server{
			Addr:              opts.Config.ServerAddress,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins listening for incoming HTTP requests
func (s *Server) Start() error {
	slog.Info("HTTP server starting", "address", s.opts.Config.ServerAddress)
	slog.Info("API documentation available", "url", "http://localhost"+s.opts.Config.ServerAddress+"/docs")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	return s.server.Shutdown(ctx)
}
