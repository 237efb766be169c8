package clients

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	ErrClientNotFound   = stderrors.New("client not found")
	ErrCredentialsWrong = stderrors.New("wrong client credentials")
)

// Registry authenticates caller credentials and resolves relying-party
// metadata on top of a Repo.
type Registry struct {
	repo Repo
}

func NewRegistry(repo Repo) (*Registry, error) {
	if repo == nil {
		return nil, errors.New("[NewRegistry] repo is required")
	}
	return &Registry{repo: repo}, nil
}

// LoadAndAuthRelyingParty resolves a relying party by its client id and,
// when secretRequired is set, authenticates the presented secret against
// the stored hash. Public clients use the code flow without a secret, so
// the authorization endpoint passes secretRequired=false for it.
func (r *Registry) LoadAndAuthRelyingParty(ctx context.Context, clientID, clientSecret string, secretRequired bool) (*RelyingParty, error) {
	rp, err := r.repo.Get(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(ErrClientNotFound, clientID)
	}
	if secretRequired && !CheckSecretHash(clientSecret, rp.SecretHash) {
		return nil, errors.Wrap(ErrCredentialsWrong, clientID)
	}
	return rp, nil
}

// LoadRelyingParty resolves a relying party without any secret check.
func (r *Registry) LoadRelyingParty(ctx context.Context, clientID string) (*RelyingParty, error) {
	rp, err := r.repo.Get(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(ErrClientNotFound, clientID)
	}
	return rp, nil
}
