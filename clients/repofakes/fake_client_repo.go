package fakeclientrepo

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-openid-server/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	relyingParties map[string]*clients.RelyingParty
	lock           sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		relyingParties: make(map[string]*clients.RelyingParty),
	}
}

func (cr *FakeClientRepo) Upsert(_ context.Context, rp *clients.RelyingParty) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.relyingParties[rp.Name] = rp
	return nil
}

func (cr *FakeClientRepo) Delete(_ context.Context, name string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	if _, ok := cr.relyingParties[name]; !ok {
		return errors.New("not found")
	}
	delete(cr.relyingParties, name)
	return nil
}

func (cr *FakeClientRepo) Get(_ context.Context, name string) (*clients.RelyingParty, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	rp, ok := cr.relyingParties[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return rp, nil
}

func (cr *FakeClientRepo) List(_ context.Context, offset, limit int) ([]*clients.RelyingParty, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	all := make([]*clients.RelyingParty, 0, len(cr.relyingParties))
	for _, rp := range cr.relyingParties {
		all = append(all, rp)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
