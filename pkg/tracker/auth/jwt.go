package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

// DefaultTokenDuration is used when IssueToken is called with a zero TTL.
const DefaultTokenDuration = 24 * time.Hour

const tokenIssuer = "allowance-tracker"

// ErrInvalidToken is the only error token verification returns. Expired,
// tampered, undecodable and incomplete tokens are indistinguishable to the
// caller; the cause is logged at debug level.
var ErrInvalidToken = errs.New(errs.KindUnauthenticated, "invalid token")

// Claims represents the claims of a session token. The subject is the user's
// email.
type Claims struct {
	jwt.RegisteredClaims
	GoogleID string `json:"google_id,omitempty"`
}

// Email returns the subject email.
func (c *Claims) Email() string {
	return c.Subject
}

// TokenIdentity is the input to IssueToken.
type TokenIdentity struct {
	Email    string
	GoogleID string
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// TokenManager issues and verifies HS256 session tokens signed with a shared
// secret. Tokens are stateless; a Denylist, when set, lets logout revoke a
// token before it expires.
type TokenManager struct {
	secret        []byte
	tokenDuration time.Duration
	denylist      Denylist
	users         UserLookup
	now           func() time.Time
}

// TokenManagerOption configures a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithTokenDuration overrides DefaultTokenDuration.
func WithTokenDuration(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		if d > 0 {
			m.tokenDuration = d
		}
	}
}

// WithDenylist makes verification reject revoked tokens.
func WithDenylist(d Denylist) TokenManagerOption {
	return func(m *TokenManager) {
		m.denylist = d
	}
}

// WithUserLookup lets Authenticate resolve the token subject to a stored user.
func WithUserLookup(users UserLookup) TokenManagerOption {
	return func(m *TokenManager) {
		m.users = users
	}
}

func NewTokenManager(secret string, opts ...TokenManagerOption) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token signing secret must not be empty")
	}
	m := &TokenManager{
		secret:        []byte(secret),
		tokenDuration: DefaultTokenDuration,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// IssueToken signs a token for identity. A zero ttl means the default
// duration; a negative ttl yields a token that is already expired. Missing
// identity fields are not rejected here; such tokens fail verification.
func (m *TokenManager) IssueToken(_ context.Context, identity TokenIdentity, ttl time.Duration) (*TokenResponse, error) {
	if ttl == 0 {
		ttl = m.tokenDuration
	}
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		GoogleID: identity.GoogleID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to sign token", err)
	}

	return &TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// VerifyToken checks signature, expiry, required claims and the denylist.
func (m *TokenManager) VerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.parse(ctx, tokenString)
	if err != nil {
		slog.DebugContext(ctx, "token rejected", "error", err)
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) parse(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(_ *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || claims.GoogleID == "" {
		return nil, errors.New("token is missing email or identity id")
	}
	if m.denylist != nil && claims.ID != "" {
		revoked, err := m.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("denylist lookup: %w", err)
		}
		if revoked {
			return nil, errors.New("token has been revoked")
		}
	}
	return claims, nil
}

// Revoke adds the token to the denylist until its natural expiry.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.denylist == nil {
		return errs.New(errs.KindInvalidInput, "token revocation is not enabled")
	}
	if claims == nil || claims.ID == "" {
		return errs.New(errs.KindInvalidInput, "token cannot be revoked")
	}
	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return m.denylist.Revoke(ctx, claims.ID, until)
}

// Authenticate implements AuthnProvider for "Authorization: Bearer" headers.
func (m *TokenManager) Authenticate(ctx context.Context, reqHeaders func(name string) string, _ url.Values) (Session, error) {
	const bearerPrefix = "Bearer "
	authHeader := reqHeaders("Authorization")
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return nil, nil
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])

	claims, err := m.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if m.users == nil {
		return NewUserSession(&models.User{Email: claims.Subject, GoogleID: claims.GoogleID, IsActive: true}, claims), nil
	}
	user, err := m.users.GetUserByEmail(ctx, models.NormalizeEmail(claims.Subject))
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.New(errs.KindUnauthenticated, "user not found")
		}
		return nil, err
	}
	return NewUserSession(user, claims), nil
}
