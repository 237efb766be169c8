// Package oidcfed implements an identity provider that federates
// authentication to an upstream OpenID Connect issuer. The end user
// authenticates at the upstream issuer; this provider exchanges the
// resulting authorization code and verifies the upstream ID token.
package oidcfed

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-openid-server/providers"
)

// Config describes the upstream issuer and the client registered with it.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

var _ providers.Provider = (*Provider)(nil)

type Provider struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// New discovers the upstream issuer's endpoints and prepares the code
// exchange configuration and ID token verifier.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.New("[oidcfed.New] issuer and client id are required")
	}

	upstream, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcfed.New] issuer discovery")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     upstream.Endpoint(),
			Scopes:       scopes,
		},
		verifier: upstream.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// SupportsAuthorizationCode is true: the upstream issuer minted the code,
// so redemption goes back to it rather than to the session store.
func (p *Provider) SupportsAuthorizationCode() bool { return true }

// Authenticate exchanges the upstream authorization code carried in the auth
// data, verifies the returned ID token and surfaces its claims.
func (p *Provider) Authenticate(ctx context.Context, in providers.Input) (*providers.Result, error) {
	code := in.Data["code"]
	if code == "" {
		return nil, errors.New("[oidcfed.Authenticate] missing authorization code")
	}

	exchangeOpts := []oauth2.AuthCodeOption{}
	if verifier := in.Data["code_verifier"]; verifier != "" {
		exchangeOpts = append(exchangeOpts, oauth2.SetAuthURLParam("code_verifier", verifier))
	}

	oauth2Token, err := p.oauth2Config.Exchange(ctx, code, exchangeOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcfed.Authenticate] code exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("[oidcfed.Authenticate] no ID token in exchange response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcfed.Authenticate] ID token verification")
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[oidcfed.Authenticate] extracting claims")
	}

	return &providers.Result{
		Status: providers.StatusSuccess,
		Data:   claims,
	}, nil
}
