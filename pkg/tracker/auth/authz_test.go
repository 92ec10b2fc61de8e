package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

func TestAuthorizerRequireUser(t *testing.T) {
	a := NewAuthorizer(AuthorizerOptions{Enabled: true, AdminEmails: []string{"Admin@Example.com"}})

	active := &models.User{Email: "parent@example.com", IsActive: true}
	inactive := &models.User{Email: "gone@example.com", IsActive: false}

	tests := []struct {
		name     string
		ctx      context.Context
		wantKind errs.Kind
		wantUser string
	}{
		{"anonymous", context.Background(), errs.KindUnauthenticated, ""},
		{"active user", AuthSessionTo(context.Background(), NewUserSession(active, nil)), "", "parent@example.com"},
		{"inactive user", AuthSessionTo(context.Background(), NewUserSession(inactive, nil)), errs.KindForbidden, ""},
		{"system", WithSystemContext(context.Background()), "", SystemEmail},
		{"rejected token", authErrorTo(context.Background(), ErrInvalidToken), errs.KindUnauthenticated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := a.RequireUser(tt.ctx)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, errs.KindOf(err))
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user.Email)
		})
	}
}

func TestAuthorizerRequireAdmin(t *testing.T) {
	a := NewAuthorizer(AuthorizerOptions{Enabled: true, AdminEmails: []string{" Admin@Example.com "}})

	admin := AuthSessionTo(context.Background(), NewUserSession(&models.User{Email: "admin@example.com", IsActive: true}, nil))
	_, err := a.RequireAdmin(admin)
	assert.NoError(t, err)

	// The stored admin flag does not grant access; only the allow-list does.
	flagged := AuthSessionTo(context.Background(), NewUserSession(&models.User{Email: "parent@example.com", IsActive: true, IsAdmin: true}, nil))
	_, err = a.RequireAdmin(flagged)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	inactiveAdmin := AuthSessionTo(context.Background(), NewUserSession(&models.User{Email: "admin@example.com"}, nil))
	_, err = a.RequireAdmin(inactiveAdmin)
	assert.EqualError(t, err, "user account is inactive")

	_, err = a.RequireAdmin(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = a.RequireAdmin(authErrorTo(context.Background(), ErrInvalidToken))
	assert.Equal(t, ErrInvalidToken, err)
}

func TestAuthorizerDisabled(t *testing.T) {
	a := NewAuthorizer(AuthorizerOptions{Enabled: false})
	assert.False(t, a.Enabled())

	user, err := a.RequireAdmin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SystemEmail, user.Email)
	assert.True(t, user.IsActive)
}

func TestAuthorizerCanLogin(t *testing.T) {
	open := NewAuthorizer(AuthorizerOptions{Enabled: true})
	assert.NoError(t, open.CanLogin("anyone@example.com"))

	restricted := NewAuthorizer(AuthorizerOptions{Enabled: true, AuthorizedEmails: []string{"parent@example.com"}})
	assert.NoError(t, restricted.CanLogin("PARENT@example.com"))
	assert.Equal(t, errs.KindForbidden, errs.KindOf(restricted.CanLogin("stranger@example.com")))
}

func TestAuthorizerIsAdminEmail(t *testing.T) {
	a := NewAuthorizer(AuthorizerOptions{AdminEmails: []string{"admin@example.com", ""}})
	assert.True(t, a.IsAdminEmail("ADMIN@example.com"))
	assert.False(t, a.IsAdminEmail(""))
	assert.False(t, a.IsAdminEmail("parent@example.com"))
}
