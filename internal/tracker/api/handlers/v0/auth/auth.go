// Package auth registers the Google login, session and logout endpoints.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	v0 "github.com/scottsaenz/child-allowance-tracker/internal/tracker/api/handlers/v0"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// Handler holds what the auth endpoints need. Tokens is nil when no signing
// secret is configured and Identity is nil when Google login is not set up;
// the affected endpoints then answer 503.
type Handler struct {
	Service       service.TrackerService
	Authz         *auth.Authorizer
	Tokens        *auth.TokenManager
	Identity      auth.IdentityProvider
	TokenTTL      time.Duration
	SecureCookies bool
}

type LoginOutput struct {
	Status    int
	Location  string      `header:"Location"`
	SetCookie http.Cookie `header:"Set-Cookie"`
}

type CallbackInput struct {
	Code        string `query:"code" required:"false"`
	State       string `query:"state" required:"false"`
	Error       string `query:"error" required:"false" doc:"Set by the provider when the user declined"`
	StateCookie string `cookie:"oauth_state"`
}

type LoginBody struct {
	auth.TokenResponse
	User *models.User `json:"user"`
}

type CallbackOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      LoginBody
}

type MeBody struct {
	User        *models.User `json:"user"`
	IsAdmin     bool         `json:"is_admin" doc:"Whether admin-only routes are open to this user"`
	AuthEnabled bool         `json:"auth_enabled"`
}

// RegisterAuthEndpoints registers the authentication endpoints
func RegisterAuthEndpoints(api huma.API, pathPrefix string, h *Handler) {
	suffix := strings.ReplaceAll(pathPrefix, "/", "-")
	tags := []string{"auth"}

	huma.Register(api, huma.Operation{
		OperationID: "login" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/auth/login",
		Summary:     "Start Google login",
		Description: "Redirect to Google's consent screen",
		Tags:        tags,
	}, func(_ context.Context, _ *struct{}) (*LoginOutput, error) {
		if h.Identity == nil || h.Tokens == nil {
			return nil, huma.Error503ServiceUnavailable("Google login is not configured")
		}
		state, err := newState()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to start login", err)
		}
		return &LoginOutput{
			Status:    http.StatusFound,
			Location:  h.Identity.AuthCodeURL(state),
			SetCookie: h.stateCookie(state, int(stateCookieTTL.Seconds())),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login-callback" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/auth/callback",
		Summary:     "Complete Google login",
		Description: "Exchange the authorization code, create the user on first login and issue a session token",
		Tags:        tags,
	}, func(ctx context.Context, input *CallbackInput) (*CallbackOutput, error) {
		if h.Identity == nil || h.Tokens == nil {
			return nil, huma.Error503ServiceUnavailable("Google login is not configured")
		}
		if input.Error != "" {
			return nil, huma.Error401Unauthorized("Login was not completed: " + input.Error)
		}
		if input.Code == "" {
			return nil, huma.Error400BadRequest("Missing authorization code")
		}
		if input.State == "" || subtle.ConstantTimeCompare([]byte(input.State), []byte(input.StateCookie)) != 1 {
			return nil, huma.Error400BadRequest("Invalid login state")
		}

		identity, err := h.Identity.Exchange(ctx, input.Code)
		if err != nil {
			return nil, v0.HTTPError(ctx, err)
		}
		if err := h.Authz.CanLogin(identity.Email); err != nil {
			slog.InfoContext(ctx, "login refused", logging.UserHash(identity.Email))
			return nil, v0.HTTPError(ctx, err)
		}
		user, err := h.Service.GetOrCreateUser(ctx, *identity)
		if err != nil {
			return nil, v0.HTTPError(ctx, err)
		}
		if err := h.Authz.CheckUser(user); err != nil {
			return nil, v0.HTTPError(ctx, err)
		}

		token, err := h.Tokens.IssueToken(ctx, auth.TokenIdentity{Email: user.Email, GoogleID: identity.Subject}, h.TokenTTL)
		if err != nil {
			return nil, v0.HTTPError(ctx, err)
		}
		slog.InfoContext(ctx, "user logged in", logging.UserHash(user.Email))
		return &CallbackOutput{
			SetCookie: h.stateCookie("", -1),
			Body:      LoginBody{TokenResponse: *token, User: user},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-me" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/auth/me",
		Summary:     "Current user",
		Tags:        tags,
		Security:    []map[string][]string{{"bearer": {}}},
	}, func(ctx context.Context, _ *struct{}) (*v0.Response[MeBody], error) {
		user, err := h.Authz.RequireUser(ctx)
		if err != nil {
			return nil, v0.HTTPError(ctx, err)
		}
		return &v0.Response[MeBody]{
			Body: MeBody{
				User:        user,
				IsAdmin:     !h.Authz.Enabled() || h.Authz.IsAdminEmail(user.Email),
				AuthEnabled: h.Authz.Enabled(),
			},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout" + suffix,
		Method:      http.MethodPost,
		Path:        pathPrefix + "/auth/logout",
		Summary:     "Log out",
		Description: "Revoke the presented token until it would have expired",
		Tags:        tags,
		Security:    []map[string][]string{{"bearer": {}}},
	}, func(ctx context.Context, _ *struct{}) (*v0.Response[v0.EmptyResponse], error) {
		if h.Tokens == nil {
			return nil, huma.Error503ServiceUnavailable("Session tokens are not configured")
		}
		session, ok := auth.AuthSessionFrom(ctx)
		if !ok {
			if err := auth.AuthErrorFrom(ctx); err != nil {
				return nil, v0.HTTPError(ctx, err)
			}
			return nil, v0.HTTPError(ctx, auth.ErrUnauthenticated)
		}
		claims := session.Principal().Claims
		if claims == nil {
			return nil, v0.HTTPError(ctx, errs.New(errs.KindInvalidInput, "session is not backed by a token"))
		}
		if err := h.Tokens.Revoke(ctx, claims); err != nil {
			return nil, v0.HTTPError(ctx, err)
		}
		return &v0.Response[v0.EmptyResponse]{
			Body: v0.EmptyResponse{Message: "Logged out"},
		}, nil
	})
}

func (h *Handler) stateCookie(value string, maxAge int) http.Cookie {
	return http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
