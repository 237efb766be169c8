package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-openid-server/clients"
	"github.com/jrsteele09/go-openid-server/oauth2"
	"github.com/jrsteele09/go-openid-server/providers"
	"github.com/jrsteele09/go-openid-server/sessions"
	"github.com/jrsteele09/go-openid-server/token/cache"
)

// TokenService orchestrates the token endpoint: dispatch by grant type,
// locate or create the backing session, issue the access token and build the
// response. It also handles token introspection.
type TokenService struct {
	clients   *clients.Registry
	providers *providers.Registry
	sessions  *sessions.Manager
	idTokens  *cache.Cache
	nowFunc   func() time.Time
}

type TokenServiceOption func(*TokenService)

// WithTokenNowFunc sets the clock source (primarily for testing).
func WithTokenNowFunc(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.nowFunc = now
	}
}

func NewTokenService(
	clientRegistry *clients.Registry,
	providerRegistry *providers.Registry,
	sessionManager *sessions.Manager,
	idTokenCache *cache.Cache,
	options ...TokenServiceOption,
) (*TokenService, error) {
	if clientRegistry == nil {
		return nil, errors.New("[NewTokenService] client registry is required")
	}
	if providerRegistry == nil {
		return nil, errors.New("[NewTokenService] provider registry is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewTokenService] session manager is required")
	}
	if idTokenCache == nil {
		return nil, errors.New("[NewTokenService] ID token cache is required")
	}

	s := &TokenService{
		clients:   clientRegistry,
		providers: providerRegistry,
		sessions:  sessionManager,
		idTokens:  idTokenCache,
		nowFunc:   time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// GetToken redeems a grant for a new access token. The cached ID token for
// the entry is invalidated after issuance so it is re-materialized against
// the fresh token.
func (s *TokenService) GetToken(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	rp, err := s.clients.LoadAndAuthRelyingParty(ctx, req.ClientID, req.ClientSecret, true)
	if err != nil {
		return nil, errors.Wrap(err, "[GetToken] relying party")
	}

	session, err := s.loadSession(ctx, req, rp)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.AddToken(ctx, session, rp); err != nil {
		return nil, errors.Wrap(err, "[GetToken] add token")
	}
	s.idTokens.Invalidate(session.ID, rp.Name)

	resp, err := s.idTokenResponse(session, rp)
	if err != nil {
		return nil, err
	}
	logTokenResponse(req.GrantType)
	return resp, nil
}

// loadSession resolves the session backing a token request, dispatching on
// the grant type. Unsupported grant types fail before any store or provider
// access; an empty resolution always becomes an explicit error.
func (s *TokenService) loadSession(ctx context.Context, req *oauth2.TokenRequest, rp *clients.RelyingParty) (*sessions.Session, error) {
	var (
		session *sessions.Session
		err     error
	)

	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		session, err = s.loadCodeSession(ctx, req, rp)
	case oauth2.RefreshTokenGrant, oauth2.AuthenticationTokenGrant:
		session, err = s.sessions.GetByValidRefreshToken(ctx, req.RefreshToken, s.nowFunc())
	default:
		return nil, errors.Wrap(ErrInvalidGrantType, string(req.GrantType))
	}
	if err != nil {
		return nil, errors.Wrap(err, "[loadSession] resolving session")
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *TokenService) loadCodeSession(ctx context.Context, req *oauth2.TokenRequest, rp *clients.RelyingParty) (*sessions.Session, error) {
	provider, err := s.providers.Get(rp.IdentityProvider)
	if err != nil {
		return nil, err
	}

	// The provider minted the code itself: redeem it there and start a
	// fresh session from the returned identity.
	if provider.SupportsAuthorizationCode() {
		authResult, err := provider.Authenticate(ctx, providers.Input{
			RelyingParty: rp.Name,
			Data:         req.AuthData,
		})
		if err != nil {
			return nil, err
		}
		return s.sessions.CreateSession(ctx, rp, authResult.Data, req.Scopes, "")
	}

	session, err := s.sessions.GetByValidCode(ctx, req.AuthzCode, s.nowFunc())
	if err != nil || session == nil {
		return nil, err
	}
	// Replay protection: the code is only redeemable while its entry holds
	// no tokens. A second redemption resolves to no session at all.
	entry := session.Entry(rp.Name)
	if entry == nil || len(entry.Tokens) > 0 {
		return nil, nil
	}
	return session, nil
}

func (s *TokenService) idTokenResponse(session *sessions.Session, rp *clients.RelyingParty) (*oauth2.TokenResponse, error) {
	entry := session.Entry(rp.Name)
	if entry == nil || entry.LatestToken() == nil {
		return nil, ErrSessionNotFound
	}

	idToken, err := s.idTokens.GetToken(session, rp, entry)
	if err != nil {
		return nil, errors.Wrap(err, "[idTokenResponse] ID token")
	}

	accessToken := entry.LatestToken()
	return &oauth2.TokenResponse{
		AccessToken:  accessToken.Value,
		ExpiresIn:    accessToken.ExpiresAt.Unix(),
		TokenType:    oauth2.BearerTokenType,
		IdToken:      idToken.IdToken,
		RefreshToken: entry.RefreshToken,
	}, nil
}

// CheckToken introspects an access token. The session lookup and the client
// resolution run in parallel; when ExternalClientID is set the caller is
// still authenticated but the response is scoped to the external client.
func (s *TokenService) CheckToken(ctx context.Context, req *oauth2.CheckTokenRequest) (*oauth2.CheckTokenResponse, error) {
	var (
		session *sessions.Session
		client  *clients.RelyingParty
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.sessions.GetByValidToken(gctx, req.Token, s.nowFunc())
		if err != nil {
			return errors.Wrap(err, "[CheckToken] token lookup")
		}
		if found == nil {
			return ErrTokenNotFound
		}
		session = found
		return nil
	})
	g.Go(func() error {
		resolved, err := s.resolveIntrospectionClient(gctx, req)
		if err != nil {
			return err
		}
		client = resolved
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entry, accessToken := session.EntryByToken(req.Token)
	if entry == nil {
		return nil, ErrTokenNotFound
	}

	idToken, err := s.idTokens.GetToken(session, client, entry)
	if err != nil {
		return nil, errors.Wrap(err, "[CheckToken] ID token")
	}

	resp := &oauth2.CheckTokenResponse{
		IdToken:   idToken.IdToken,
		ClientID:  idToken.Client,
		ExpiresIn: accessToken.ExpiresAt.Unix(),
		Scopes:    entry.Scopes,
	}
	log.Debug().Str("client_id", resp.ClientID).Msg("finished check token flow")
	return resp, nil
}

// resolveIntrospectionClient authenticates the caller and returns the client
// the introspection response is scoped to: the external client when one is
// named (delegated introspection), the caller itself otherwise.
func (s *TokenService) resolveIntrospectionClient(ctx context.Context, req *oauth2.CheckTokenRequest) (*clients.RelyingParty, error) {
	caller, err := s.clients.LoadAndAuthRelyingParty(ctx, req.ClientID, req.ClientSecret, true)
	if err != nil {
		return nil, errors.Wrap(err, "[resolveIntrospectionClient] caller")
	}
	if req.ExternalClientID == "" {
		return caller, nil
	}
	external, err := s.clients.LoadRelyingParty(ctx, req.ExternalClientID)
	if err != nil {
		return nil, errors.Wrap(err, "[resolveIntrospectionClient] external client")
	}
	return external, nil
}

func logTokenResponse(grantType oauth2.GrantType) {
	switch grantType {
	case oauth2.RefreshTokenGrant:
		log.Debug().Msg("finished refresh token flow")
	case oauth2.AuthorizationCodeGrant:
		log.Debug().Msg("finished second step of auth code flow")
	default:
		log.Debug().Msg("finished second step of auth code (by provider) flow")
	}
}
