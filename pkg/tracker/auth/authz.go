package auth

import (
	"context"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

var (
	// ErrUnauthenticated is returned when a route needs a user but the request carried no token.
	ErrUnauthenticated = errs.New(errs.KindUnauthenticated, "authentication required")

	// ErrForbidden is returned when a user is authenticated but lacks permission.
	ErrForbidden = errs.New(errs.KindForbidden, "forbidden")

	errInactiveUser  = errs.New(errs.KindForbidden, "user account is inactive")
	errAdminRequired = errs.New(errs.KindForbidden, "admin access required")
	errNotAuthorized = errs.New(errs.KindForbidden, "email is not authorized to use this service")
)

// AuthorizerOptions configures NewAuthorizer.
type AuthorizerOptions struct {
	// Enabled turns the gate on. When false every request runs as the system principal.
	Enabled bool
	// AdminEmails may use admin-only routes. Captured once; later changes are not observed.
	AdminEmails []string
	// AuthorizedEmails may log in. Empty admits everyone.
	AuthorizedEmails []string
}

// Authorizer is the gate between an authenticated session and a route.
type Authorizer struct {
	enabled          bool
	adminEmails      map[string]struct{}
	authorizedEmails map[string]struct{}
}

func NewAuthorizer(opts AuthorizerOptions) *Authorizer {
	return &Authorizer{
		enabled:          opts.Enabled,
		adminEmails:      emailSet(opts.AdminEmails),
		authorizedEmails: emailSet(opts.AuthorizedEmails),
	}
}

func emailSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = models.NormalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Enabled reports whether requests are checked at all.
func (a *Authorizer) Enabled() bool {
	return a.enabled
}

// IsAdminEmail reports whether email is on the admin allow-list.
func (a *Authorizer) IsAdminEmail(email string) bool {
	_, ok := a.adminEmails[models.NormalizeEmail(email)]
	return ok
}

// CanLogin reports whether email may obtain a session token.
func (a *Authorizer) CanLogin(email string) error {
	if len(a.authorizedEmails) == 0 {
		return nil
	}
	if _, ok := a.authorizedEmails[models.NormalizeEmail(email)]; !ok {
		return errNotAuthorized
	}
	return nil
}

// CheckUser rejects inactive users.
func (a *Authorizer) CheckUser(user *models.User) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if !user.IsActive {
		return errInactiveUser
	}
	return nil
}

// CheckAdmin rejects users that fail CheckUser or are not on the admin allow-list.
func (a *Authorizer) CheckAdmin(user *models.User) error {
	if err := a.CheckUser(user); err != nil {
		return err
	}
	if !a.IsAdminEmail(user.Email) {
		return errAdminRequired
	}
	return nil
}

// RequireUser returns the active user behind ctx.
func (a *Authorizer) RequireUser(ctx context.Context) (*models.User, error) {
	s, ok := AuthSessionFrom(ctx)
	if !a.enabled || IsSystemSession(s) {
		return systemUser(), nil
	}
	if !ok {
		return nil, anonymousError(ctx)
	}
	user := s.Principal().User
	if err := a.CheckUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequireAdmin returns the user behind ctx if it may use admin-only routes.
func (a *Authorizer) RequireAdmin(ctx context.Context) (*models.User, error) {
	s, ok := AuthSessionFrom(ctx)
	if !a.enabled || IsSystemSession(s) {
		return systemUser(), nil
	}
	if !ok {
		return nil, anonymousError(ctx)
	}
	user := s.Principal().User
	if err := a.CheckAdmin(user); err != nil {
		return nil, err
	}
	return user, nil
}

func anonymousError(ctx context.Context) error {
	if err := AuthErrorFrom(ctx); err != nil {
		return err
	}
	return ErrUnauthenticated
}
