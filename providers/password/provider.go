// Package password implements an identity provider that authenticates
// end users against a local user repository with bcrypt-hashed passwords.
package password

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-openid-server/providers"
	"github.com/jrsteele09/go-openid-server/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid user credentials")
	ErrUserBlocked        = errors.New("user blocked")
	ErrUserUnverified     = errors.New("user not verified")
)

var _ providers.Provider = (*Provider)(nil)

type Provider struct {
	userRepo users.UserRepo
}

func New(userRepo users.UserRepo) (*Provider, error) {
	if userRepo == nil {
		return nil, errors.New("[password.New] userRepo is required")
	}
	return &Provider{userRepo: userRepo}, nil
}

// SupportsAuthorizationCode is false: codes for password-authenticated
// sessions are minted and redeemed by the session store.
func (p *Provider) SupportsAuthorizationCode() bool { return false }

// Authenticate checks the email/password pair from the auth data and, on
// success, returns the identity claims used to build the userInfo envelope.
func (p *Provider) Authenticate(ctx context.Context, in providers.Input) (*providers.Result, error) {
	email := in.Data["email"]
	pass := in.Data["password"]
	if email == "" || pass == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := p.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !users.CheckPasswordHash(pass, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}
	if !user.Verified {
		return nil, ErrUserUnverified
	}

	return &providers.Result{
		Status: providers.StatusSuccess,
		Data: map[string]any{
			"sub":   user.ID,
			"email": user.Email,
			"name":  user.Name(),
		},
	}, nil
}
