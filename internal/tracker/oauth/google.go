// Package oauth implements auth.IdentityProvider for Google sign-in.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

// GoogleIssuer is the OIDC issuer of Google accounts.
const GoogleIssuer = "https://accounts.google.com"

type GoogleOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// IssuerURL overrides GoogleIssuer, for tests.
	IssuerURL string
}

// GoogleProvider runs the authorization code flow against Google and
// verifies the returned ID token.
type GoogleProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ auth.IdentityProvider = (*GoogleProvider)(nil)

// NewGoogleProvider fetches the issuer's discovery document.
func NewGoogleProvider(ctx context.Context, opts GoogleOptions) (*GoogleProvider, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.New("google client id and secret are required")
	}
	issuer := opts.IssuerURL
	if issuer == "" {
		issuer = GoogleIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider %s: %w", issuer, err)
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: opts.ClientID}),
	}, nil
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange redeems code and returns the identity from the verified ID token.
// Accounts with an unverified email are refused.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*auth.Identity, error) {
	if code == "" {
		return nil, errs.New(errs.KindInvalidInput, "authorization code is required")
	}
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnauthenticated, "failed to exchange authorization code", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errs.New(errs.KindUpstream, "token response did not include an id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnauthenticated, "invalid id token", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errs.Wrap(errs.KindUpstream, "failed to decode id token claims", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, errs.New(errs.KindForbidden, "google account email is not verified")
	}
	return &auth.Identity{
		Email:   claims.Email,
		Name:    claims.Name,
		Subject: idToken.Subject,
		Picture: claims.Picture,
	}, nil
}
