package auth

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

// Authn
type Principal struct {
	User   *models.User
	Claims *Claims // nil for sessions not backed by a token
}

type Session interface {
	Principal() Principal
}

type AuthnProvider interface {
	Authenticate(ctx context.Context, reqHeaders func(name string) string, query url.Values) (Session, error)
}

// UserLookup resolves the email carried by a token to a stored user.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// context utils

type sessionKeyType struct{}
type authErrorKeyType struct{}

var (
	sessionKey   = sessionKeyType{}
	authErrorKey = authErrorKeyType{}
)

func AuthSessionFrom(ctx context.Context) (Session, bool) {
	v, ok := ctx.Value(sessionKey).(Session)
	return v, ok && v != nil
}

func AuthSessionTo(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// AuthErrorFrom returns why the credentials presented with the request were
// rejected, if they were.
func AuthErrorFrom(ctx context.Context) error {
	err, _ := ctx.Value(authErrorKey).(error)
	return err
}

func authErrorTo(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, authErrorKey, err)
}

type userSession struct {
	user   *models.User
	claims *Claims
}

func (s *userSession) Principal() Principal {
	return Principal{User: s.user, Claims: s.claims}
}

// NewUserSession builds a session for an already verified user.
func NewUserSession(user *models.User, claims *Claims) Session {
	return &userSession{user: user, claims: claims}
}

// AuthnMiddleware authenticates the bearer token, when present, and stores
// the resulting session on the request context. Requests without a token, or
// with one that fails authentication, pass through anonymously; the failure is
// kept on the context and returned by RequireUser and RequireAdmin, so public
// routes such as login keep working with a stale token.
func AuthnMiddleware(_ huma.API, authn AuthnProvider) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if authn == nil {
			// No auth provider configured, skip authentication
			next(ctx)
			return
		}
		url := ctx.URL()
		session, err := authn.Authenticate(ctx.Context(), ctx.Header, url.Query())
		if err != nil {
			if !errs.KindOf(err).Safe() {
				slog.Error("authentication failed", "error", err)
			}
			next(huma.WithContext(ctx, authErrorTo(ctx.Context(), err)))
			return
		}
		if session != nil {
			ctx = huma.WithContext(ctx, AuthSessionTo(ctx.Context(), session))
		}
		next(ctx)
	}
}
