package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	internaldb "github.com/scottsaenz/child-allowance-tracker/internal/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/pkg/types"
)

func baseConfig() *config.Config {
	return &config.Config{
		ServerAddress:  ":0",
		StorageBackend: config.BackendMemory,
		Environment:    "test",
		AuthEnabled:    true,
		JWTSecretKey:   "app-test-secret",
		TokenTTL:       time.Hour,
		AdminEmails:    []string{"admin@example.com"},
	}
}

func TestNewAppServesAPI(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, baseConfig())
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close(ctx)) }()

	require.NotNil(t, app.Tokens())
	require.NotNil(t, app.MCPServer())

	_, err = app.Service().GetOrCreateUser(ctx, auth.Identity{Email: "parent@example.com", Subject: "g-1"})
	require.NoError(t, err)
	token, err := app.Tokens().IssueToken(ctx, auth.TokenIdentity{Email: "parent@example.com", GoogleID: "g-1"}, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/children", strings.NewReader(`{"name":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var child models.Child
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &child))
	assert.Equal(t, "Alice", child.Name)

	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.JWTSecretKey = ""
	_, err := NewApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "JWT_SECRET_KEY")
}

func TestNewAppSeedsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("children:\n  - name: Alice\n    chores:\n      - name: Dishes\n        value: 1\n"), 0o600))

	cfg := baseConfig()
	cfg.SeedFrom = path
	ctx := context.Background()
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = app.Close(ctx) }()

	children, err := app.Service().ListChildren(ctx)
	require.NoError(t, err)
	require.Len(t, children, 1)
	chores, err := app.Service().ListChores(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, chores, 1)
}

func TestNewAppOptions(t *testing.T) {
	ctx := context.Background()
	mem := internaldb.NewMemory()
	var created service.TrackerService

	app, err := NewApp(ctx, baseConfig(), types.AppOptions{
		DatabaseFactory: func(context.Context) (database.Database, error) { return mem, nil },
		OnServiceCreated: func(s service.TrackerService) {
			created = s
		},
	})
	require.NoError(t, err)
	defer func() { _ = app.Close(ctx) }()

	assert.Same(t, app.Service(), created)
	_, err = app.Service().CreateChild(ctx, &models.Child{Name: "Bob"})
	require.NoError(t, err)
	children, err := mem.ListChildren(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 1)
}

func TestOpenDatabase(t *testing.T) {
	ctx := context.Background()

	db, err := OpenDatabase(ctx, &config.Config{StorageBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &internaldb.Memory{}, db)

	cfg := &config.Config{StorageBackend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "tracker.db")}
	db, err = OpenDatabase(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.Close())

	_, err = OpenDatabase(ctx, &config.Config{StorageBackend: "cassandra"})
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := baseConfig()
	cfg.ServerAddress = "127.0.0.1:0"
	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = app.Close(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMCPAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	db := internaldb.NewMemory()
	tokens, err := auth.NewTokenManager("secret", auth.WithUserLookup(db))
	require.NoError(t, err)
	authz := auth.NewAuthorizer(auth.AuthorizerOptions{Enabled: true})

	svc := service.NewTrackerService(db)
	_, err = svc.GetOrCreateUser(ctx, auth.Identity{Email: "parent@example.com", Subject: "g"})
	require.NoError(t, err)
	token, err := tokens.IssueToken(ctx, auth.TokenIdentity{Email: "parent@example.com", GoogleID: "g"}, 0)
	require.NoError(t, err)

	handler := mcpAuthMiddleware(tokens, authz)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := auth.AuthSessionFrom(r.Context())
		assert.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(authorization string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(""))
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer garbage"))
	assert.Equal(t, http.StatusNoContent, serve("Bearer "+token.AccessToken))

	inactive := false
	_, err = svc.UpdateUser(ctx, "parent@example.com", service.UserUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve("Bearer "+token.AccessToken))
}
