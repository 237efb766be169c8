package providers

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var ErrProviderNotFound = stderrors.New("identity provider not found")

// Registry resolves identity providers by their configured id.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register binds a provider to an id. Registration happens at wiring time,
// before any request is served; Get performs no locking.
func (r *Registry) Register(id string, provider Provider) {
	r.providers[id] = provider
}

func (r *Registry) Get(id string) (Provider, error) {
	provider, ok := r.providers[id]
	if !ok {
		return nil, errors.Wrap(ErrProviderNotFound, id)
	}
	return provider, nil
}
