package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-openid-server/clients"
	"github.com/jrsteele09/go-openid-server/token"
)

// Manager creates and extends sessions, entries and tokens. It is the sole
// mutator of session state: every mutation is persisted through the Store
// first and applied to the in-memory graph only after the store acknowledges
// success, so memory never diverges from the store on the success path.
type Manager struct {
	store        Store
	processor    token.Processor
	values       token.ValueGenerator
	masterSecret string
	keyID        string
	nowFunc      func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the clock source (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithKeyID sets the key id embedded in the userInfo envelope header.
func WithKeyID(keyID string) ManagerOption {
	return func(m *Manager) {
		m.keyID = keyID
	}
}

func NewManager(store Store, processor token.Processor, values token.ValueGenerator, masterSecret string, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if processor == nil {
		return nil, errors.New("[NewManager] processor is required")
	}
	if values == nil {
		return nil, errors.New("[NewManager] value generator is required")
	}
	if masterSecret == "" {
		return nil, errors.New("[NewManager] master secret is required")
	}

	m := &Manager{
		store:        store,
		processor:    processor,
		values:       values,
		masterSecret: masterSecret,
		nowFunc:      time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// InitSession creates a session with one pending entry: authorization code
// and refresh token are minted with their TTLs, but no access token is
// issued until the code is exchanged.
func (m *Manager) InitSession(ctx context.Context, rp *clients.RelyingParty, userInfo map[string]any, scopes []string, redirectURL string) (*Session, error) {
	return m.createSession(ctx, rp, userInfo, scopes, redirectURL, m.nowFunc(), nil)
}

// CreateSession creates a session whose entry additionally carries an
// immediate access token (implicit grant and provider-issued grants).
func (m *Manager) CreateSession(ctx context.Context, rp *clients.RelyingParty, userInfo map[string]any, scopes []string, redirectURL string) (*Session, error) {
	now := m.nowFunc()
	return m.createSession(ctx, rp, userInfo, scopes, redirectURL, now, m.mintToken(rp, now))
}

func (m *Manager) createSession(ctx context.Context, rp *clients.RelyingParty, userInfo map[string]any, scopes []string, redirectURL string, now time.Time, accessToken *Token) (*Session, error) {
	sessionExpires := now.Add(rp.SessionTTL)

	subject := token.Subject(userInfo)
	envelope, err := m.processor.CreateToken(m.masterSecret, m.keyID, now, sessionExpires,
		token.Audience(scopes), scopes, subject, userInfo)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.createSession] userInfo envelope")
	}

	entry := m.newEntry(rp, scopes, redirectURL, AuthTypeCommon, now)
	entry.AddToken(accessToken)

	session := &Session{
		ID:               uuid.New().String(),
		IdentityProvider: rp.IdentityProvider,
		Status:           StatusActive,
		Created:          now,
		ExpiresAt:        sessionExpires,
		UserInfo:         envelope,
		Entries:          []*AuthEntry{entry},
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Manager.createSession] store create")
	}

	log.Info().
		Str("relying_party", rp.Name).
		Str("subject", subject).
		Msg("created session")

	return session, nil
}

// AddToken issues a new access token against the relying party's entry.
// The token is persisted first; the in-memory entry is only appended to
// after the store acknowledges, and prior tokens are never removed.
func (m *Manager) AddToken(ctx context.Context, session *Session, rp *clients.RelyingParty) error {
	accessToken := m.mintToken(rp, m.nowFunc())

	if err := m.store.AddToken(ctx, session.ID, rp.Name, accessToken); err != nil {
		return errors.Wrap(err, "[Manager.AddToken] store add token")
	}
	if entry := session.Entry(rp.Name); entry != nil {
		entry.AddToken(accessToken)
	}
	return nil
}

// AddEntry adds a CROSS entry for a relying party not previously part of the
// session: fresh code and refresh TTLs, no access token yet.
func (m *Manager) AddEntry(ctx context.Context, session *Session, rp *clients.RelyingParty, scopes []string, redirectURL string) (*Session, error) {
	if session.Entry(rp.Name) != nil {
		return nil, errors.Errorf("[Manager.AddEntry] entry already exists for relying party %q", rp.Name)
	}
	entry := m.newEntry(rp, scopes, redirectURL, AuthTypeCross, m.nowFunc())

	if err := m.store.AddEntry(ctx, session.ID, entry); err != nil {
		return nil, errors.Wrap(err, "[Manager.AddEntry] store add entry")
	}
	session.AddEntry(entry)
	return session, nil
}

// GetByValidCode returns the session holding an unexpired authorization
// code, or nil when the code is unknown or no longer valid.
func (m *Manager) GetByValidCode(ctx context.Context, code string, now time.Time) (*Session, error) {
	return m.store.GetByValidCode(ctx, code, now)
}

// GetByValidRefreshToken returns the session holding an unexpired refresh
// token, or nil.
func (m *Manager) GetByValidRefreshToken(ctx context.Context, refreshToken string, now time.Time) (*Session, error) {
	return m.store.GetByValidRefreshToken(ctx, refreshToken, now)
}

// GetByValidToken returns the session holding an unexpired access token,
// or nil.
func (m *Manager) GetByValidToken(ctx context.Context, accessToken string, now time.Time) (*Session, error) {
	return m.store.GetByValidToken(ctx, accessToken, now)
}

func (m *Manager) mintToken(rp *clients.RelyingParty, now time.Time) *Token {
	return &Token{
		Value:     m.values.Generate(),
		Created:   now,
		ExpiresAt: now.Add(rp.TokenTTL),
	}
}

func (m *Manager) newEntry(rp *clients.RelyingParty, scopes []string, redirectURL string, authType AuthType, now time.Time) *AuthEntry {
	return &AuthEntry{
		RelyingParty:          rp.Name,
		AuthType:              authType,
		AuthCode:              m.values.Generate(),
		CodeExpiresAt:         now.Add(rp.CodeTTL),
		RefreshToken:          m.values.Generate(),
		RefreshTokenExpiresAt: now.Add(rp.RefreshTokenTTL),
		Scopes:                scopes,
		RedirectURL:           redirectURL,
		Created:               now,
	}
}
