// Package memstore provides an in-memory sessions.Store for tests and
// single-process embedders. The write lock serializes concurrent redemption
// of the same credential, which the lifecycle core assumes of every store.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-openid-server/sessions"
)

var ErrSessionNotFound = errors.New("session not found in store")

var _ sessions.Store = (*Store)(nil)

type Store struct {
	lock      sync.RWMutex
	sessions  map[string]*sessions.Session
	byCode    map[string]string // authorization code -> session id
	byRefresh map[string]string // refresh token -> session id
	byToken   map[string]string // access token -> session id
}

func New() *Store {
	return &Store{
		sessions:  make(map[string]*sessions.Session),
		byCode:    make(map[string]string),
		byRefresh: make(map[string]string),
		byToken:   make(map[string]string),
	}
}

// Create stores a snapshot of the session. The caller's object graph and the
// stored one stay independent afterwards.
func (s *Store) Create(_ context.Context, session *sessions.Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored := cloneSession(session)
	s.sessions[stored.ID] = stored
	for _, entry := range stored.Entries {
		s.indexEntry(stored.ID, entry)
	}
	return nil
}

func (s *Store) AddToken(_ context.Context, sessionID, relyingParty string, t *sessions.Token) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	entry := session.Entry(relyingParty)
	if entry == nil {
		return ErrSessionNotFound
	}

	stored := *t
	entry.AddToken(&stored)
	s.byToken[stored.Value] = sessionID
	return nil
}

func (s *Store) AddEntry(_ context.Context, sessionID string, entry *sessions.AuthEntry) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	stored := cloneEntry(entry)
	session.AddEntry(stored)
	s.indexEntry(sessionID, stored)
	return nil
}

func (s *Store) GetByValidCode(_ context.Context, code string, now time.Time) (*sessions.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	session, ok := s.lookup(s.byCode, code)
	if !ok {
		return nil, nil
	}
	for _, entry := range session.Entries {
		if entry.AuthCode == code && entry.CodeExpiresAt.After(now) {
			return cloneSession(session), nil
		}
	}
	return nil, nil
}

func (s *Store) GetByValidRefreshToken(_ context.Context, refreshToken string, now time.Time) (*sessions.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	session, ok := s.lookup(s.byRefresh, refreshToken)
	if !ok {
		return nil, nil
	}
	for _, entry := range session.Entries {
		if entry.RefreshToken == refreshToken && entry.RefreshTokenExpiresAt.After(now) {
			return cloneSession(session), nil
		}
	}
	return nil, nil
}

func (s *Store) GetByValidToken(_ context.Context, accessToken string, now time.Time) (*sessions.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	session, ok := s.lookup(s.byToken, accessToken)
	if !ok {
		return nil, nil
	}
	if _, t := session.EntryByToken(accessToken); t != nil && t.ExpiresAt.After(now) {
		return cloneSession(session), nil
	}
	return nil, nil
}

func (s *Store) lookup(index map[string]string, value string) (*sessions.Session, bool) {
	sessionID, ok := index[value]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

// indexEntry registers an entry's credentials. Expired credentials are never
// deleted; they simply stop matching the validity checks at read time.
func (s *Store) indexEntry(sessionID string, entry *sessions.AuthEntry) {
	if entry.AuthCode != "" {
		s.byCode[entry.AuthCode] = sessionID
	}
	if entry.RefreshToken != "" {
		s.byRefresh[entry.RefreshToken] = sessionID
	}
	for _, t := range entry.Tokens {
		s.byToken[t.Value] = sessionID
	}
}

func cloneSession(session *sessions.Session) *sessions.Session {
	cloned := *session
	cloned.Entries = make([]*sessions.AuthEntry, 0, len(session.Entries))
	for _, entry := range session.Entries {
		cloned.Entries = append(cloned.Entries, cloneEntry(entry))
	}
	return &cloned
}

func cloneEntry(entry *sessions.AuthEntry) *sessions.AuthEntry {
	cloned := *entry
	cloned.Scopes = append([]string(nil), entry.Scopes...)
	cloned.Tokens = make([]*sessions.Token, 0, len(entry.Tokens))
	for _, t := range entry.Tokens {
		storedToken := *t
		cloned.Tokens = append(cloned.Tokens, &storedToken)
	}
	return &cloned
}
