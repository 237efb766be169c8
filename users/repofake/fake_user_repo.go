package fakeuserrepo

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-openid-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byEmail map[string]*users.User
	byID    map[string]*users.User
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byEmail: make(map[string]*users.User),
		byID:    make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.byEmail[user.Email] = user
	ur.byID[user.ID] = user
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.byEmail[email]
	if !ok {
		return errors.New("not found")
	}
	delete(ur.byID, user.ID)
	delete(ur.byEmail, email)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.byEmail[email]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (ur *FakeUserRepo) List(_ context.Context, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	all := make([]*users.User, 0, len(ur.byEmail))
	for _, user := range ur.byEmail {
		all = append(all, user)
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
