// Package cache memoizes materialized ID tokens per (session, relying party).
package cache

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-openid-server/clients"
	"github.com/jrsteele09/go-openid-server/sessions"
	"github.com/jrsteele09/go-openid-server/token"
)

// CachedToken is one materialized ID token together with the client it was
// minted for.
type CachedToken struct {
	IdToken string
	Client  string
}

type cacheKey struct {
	SessionID    string
	RelyingParty string
}

// Cache holds at most one live ID token per (session, relying party) key.
// Regeneration happens only on a miss; concurrent misses for the same key
// are collapsed into a single materialization.
type Cache struct {
	processor    token.Processor
	masterSecret string
	nowFunc      func() time.Time

	lock    sync.RWMutex
	entries map[cacheKey]*CachedToken
	group   singleflight.Group
}

type Option func(*Cache)

// WithNowFunc sets the clock source (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

func New(processor token.Processor, masterSecret string, options ...Option) (*Cache, error) {
	if processor == nil {
		return nil, errors.New("[cache.New] processor is required")
	}
	if masterSecret == "" {
		return nil, errors.New("[cache.New] master secret is required")
	}

	c := &Cache{
		processor:    processor,
		masterSecret: masterSecret,
		nowFunc:      time.Now,
		entries:      make(map[cacheKey]*CachedToken),
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// GetToken returns the cached ID token for the session and relying party,
// synthesizing and storing a new one on a miss. The session's userInfo
// envelope is embedded opaquely; it is never decoded here.
func (c *Cache) GetToken(session *sessions.Session, rp *clients.RelyingParty, entry *sessions.AuthEntry) (*CachedToken, error) {
	key := cacheKey{SessionID: session.ID, RelyingParty: rp.Name}

	c.lock.RLock()
	cached, ok := c.entries[key]
	c.lock.RUnlock()
	if ok {
		return cached, nil
	}

	value, err, _ := c.group.Do(key.SessionID+"\x00"+key.RelyingParty, func() (any, error) {
		c.lock.RLock()
		cached, ok := c.entries[key]
		c.lock.RUnlock()
		if ok {
			return cached, nil
		}

		idToken, err := c.processor.CreateToken(c.masterSecret, rp.Name,
			c.nowFunc(), session.ExpiresAt, rp.Name, entry.Scopes, session.ID,
			map[string]any{"user_info": session.UserInfo})
		if err != nil {
			return nil, errors.Wrap(err, "[Cache.GetToken] materializing ID token")
		}

		cached = &CachedToken{IdToken: idToken, Client: rp.Name}
		c.lock.Lock()
		c.entries[key] = cached
		c.lock.Unlock()
		return cached, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*CachedToken), nil
}

// Invalidate drops the cached ID token for a key. The grant coordinator
// calls it after every successful access-token issuance so a fresh token
// never rides with a stale ID token.
func (c *Cache) Invalidate(sessionID, relyingParty string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, cacheKey{SessionID: sessionID, RelyingParty: relyingParty})
}
