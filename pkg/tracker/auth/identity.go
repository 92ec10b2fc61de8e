package auth

import "context"

// Identity is what an identity provider asserts about a user after login.
type Identity struct {
	Email   string
	Name    string
	Subject string // provider user id, e.g. the Google "sub" claim
	Picture string
}

// IdentityProvider runs the OAuth authorization code flow.
type IdentityProvider interface {
	// AuthCodeURL returns the provider URL the browser is sent to.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a verified identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}
