package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-openid-server/clients"
	"github.com/jrsteele09/go-openid-server/sessions"
	"github.com/jrsteele09/go-openid-server/sessions/memstore"
	"github.com/jrsteele09/go-openid-server/token"
)

const (
	masterSecret   = "master-secret"
	relyingParty   = "test-client"
	providerID     = "password-provider"
	redirectURL    = "https://client.example.com/callback"
	crossParty     = "partner-client"
	sessionTTL     = 86400 * time.Second
	tokenTTL       = 3600 * time.Second
	refreshTTL     = 86400 * time.Second
	codeTTL        = 300 * time.Second
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type testFixture struct {
	store   *memstore.Store
	manager *sessions.Manager
	rp      *clients.RelyingParty
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	store := memstore.New()
	manager, err := sessions.NewManager(store, token.NewJWTProcessor(), token.UUIDGenerator{}, masterSecret,
		sessions.WithNowFunc(func() time.Time { return testNow }))
	require.NoError(t, err)

	return &testFixture{
		store:   store,
		manager: manager,
		rp: &clients.RelyingParty{
			Name:             relyingParty,
			IdentityProvider: providerID,
			SessionTTL:       sessionTTL,
			TokenTTL:         tokenTTL,
			RefreshTokenTTL:  refreshTTL,
			CodeTTL:          codeTTL,
		},
	}
}

func userInfo() map[string]any {
	return map[string]any{"sub": "user-1", "email": "john.doe@example.com"}
}

func TestCreateSessionMintsAllArtifacts(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.manager.CreateSession(context.Background(), f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)

	require.Equal(t, sessions.StatusActive, session.Status)
	require.NotEmpty(t, session.ID)
	require.NotEmpty(t, session.UserInfo)
	require.Equal(t, providerID, session.IdentityProvider)
	require.True(t, session.ExpiresAt.Equal(testNow.Add(sessionTTL)))

	require.Len(t, session.Entries, 1)
	entry := session.Entry(relyingParty)
	require.NotNil(t, entry)
	require.Equal(t, sessions.AuthTypeCommon, entry.AuthType)
	require.Equal(t, redirectURL, entry.RedirectURL)

	accessToken := entry.LatestToken()
	require.NotNil(t, accessToken)
	require.NotEmpty(t, entry.AuthCode)
	require.NotEmpty(t, entry.RefreshToken)
	require.NotEmpty(t, accessToken.Value)
	require.NotEqual(t, entry.AuthCode, entry.RefreshToken)
	require.NotEqual(t, entry.AuthCode, accessToken.Value)
	require.NotEqual(t, entry.RefreshToken, accessToken.Value)

	require.True(t, entry.CodeExpiresAt.Equal(testNow.Add(codeTTL)))
	require.True(t, entry.RefreshTokenExpiresAt.Equal(testNow.Add(refreshTTL)))
	require.True(t, accessToken.ExpiresAt.Equal(testNow.Add(tokenTTL)))
}

func TestInitSessionHasNoTokens(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.manager.InitSession(context.Background(), f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)

	entry := session.Entry(relyingParty)
	require.NotNil(t, entry)
	require.Empty(t, entry.Tokens)
	require.Nil(t, entry.LatestToken())
	require.NotEmpty(t, entry.AuthCode)
	require.NotEmpty(t, entry.RefreshToken)
}

func TestAddTokenIsAppendOnly(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.manager.InitSession(ctx, f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)
	entry := session.Entry(relyingParty)

	issued := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, f.manager.AddToken(ctx, session, f.rp))
		require.Len(t, entry.Tokens, i)
		latest := entry.LatestToken()
		require.NotContains(t, issued, latest.Value)
		issued = append(issued, latest.Value)
	}

	// history retained, in issuance order
	for i, accessToken := range entry.Tokens {
		require.Equal(t, issued[i], accessToken.Value)
	}
}

func TestAddTokenLeavesMemoryUntouchedOnStoreFailure(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	failing := &failingStore{Store: f.store}
	manager, err := sessions.NewManager(failing, token.NewJWTProcessor(), token.UUIDGenerator{}, masterSecret,
		sessions.WithNowFunc(func() time.Time { return testNow }))
	require.NoError(t, err)

	session, err := manager.InitSession(ctx, f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)

	failing.failAddToken = true
	require.Error(t, manager.AddToken(ctx, session, f.rp))
	require.Empty(t, session.Entry(relyingParty).Tokens)
}

func TestAddEntryAddsCrossEntry(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.manager.InitSession(ctx, f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)

	crossRP := &clients.RelyingParty{
		Name:             crossParty,
		IdentityProvider: providerID,
		SessionTTL:       sessionTTL,
		TokenTTL:         tokenTTL,
		RefreshTokenTTL:  refreshTTL,
		CodeTTL:          codeTTL,
	}

	session, err = f.manager.AddEntry(ctx, session, crossRP, []string{"profile"}, redirectURL)
	require.NoError(t, err)
	require.Len(t, session.Entries, 2)

	entry := session.Entry(crossParty)
	require.NotNil(t, entry)
	require.Equal(t, sessions.AuthTypeCross, entry.AuthType)
	require.Empty(t, entry.Tokens)

	// the cross entry's code is redeemable through the store
	found, err := f.manager.GetByValidCode(ctx, entry.AuthCode, testNow)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, session.ID, found.ID)
	require.Len(t, found.Entries, 2)
}

func TestGetByValidCodeExpiryBoundary(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.manager.InitSession(ctx, f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)
	code := session.Entry(relyingParty).AuthCode

	found, err := f.manager.GetByValidCode(ctx, code, testNow.Add(codeTTL-time.Second))
	require.NoError(t, err)
	require.NotNil(t, found)

	// expiry equals now: no longer valid
	found, err = f.manager.GetByValidCode(ctx, code, testNow.Add(codeTTL))
	require.NoError(t, err)
	require.Nil(t, found)

	found, err = f.manager.GetByValidCode(ctx, "unknown-code", testNow)
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestGetByValidRefreshTokenAndToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.manager.CreateSession(ctx, f.rp, userInfo(), []string{"openid"}, redirectURL)
	require.NoError(t, err)
	entry := session.Entry(relyingParty)

	found, err := f.manager.GetByValidRefreshToken(ctx, entry.RefreshToken, testNow.Add(refreshTTL-time.Second))
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = f.manager.GetByValidRefreshToken(ctx, entry.RefreshToken, testNow.Add(refreshTTL))
	require.NoError(t, err)
	require.Nil(t, found)

	accessToken := entry.LatestToken()
	found, err = f.manager.GetByValidToken(ctx, accessToken.Value, testNow.Add(tokenTTL-time.Second))
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = f.manager.GetByValidToken(ctx, accessToken.Value, testNow.Add(tokenTTL))
	require.NoError(t, err)
	require.Nil(t, found)
}

// failingStore wraps the in-memory store and fails writes on demand.
type failingStore struct {
	*memstore.Store
	failAddToken bool
}

func (s *failingStore) AddToken(ctx context.Context, sessionID, rp string, t *sessions.Token) error {
	if s.failAddToken {
		return errors.New("store unavailable")
	}
	return s.Store.AddToken(ctx, sessionID, rp, t)
}
