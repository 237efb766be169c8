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

// AuthorizeService orchestrates the authorization endpoint: authenticate the
// caller, delegate end-user authentication to the relying party's identity
// provider, create or locate the session and build the response.
type AuthorizeService struct {
	clients   *clients.Registry
	providers *providers.Registry
	sessions  *sessions.Manager
	idTokens  *cache.Cache
	nowFunc   func() time.Time
}

type AuthorizeServiceOption func(*AuthorizeService)

// WithAuthorizeNowFunc sets the clock source (primarily for testing).
func WithAuthorizeNowFunc(now func() time.Time) AuthorizeServiceOption {
	return func(s *AuthorizeService) {
		s.nowFunc = now
	}
}

func NewAuthorizeService(
	clientRegistry *clients.Registry,
	providerRegistry *providers.Registry,
	sessionManager *sessions.Manager,
	idTokenCache *cache.Cache,
	options ...AuthorizeServiceOption,
) (*AuthorizeService, error) {
	if clientRegistry == nil {
		return nil, errors.New("[NewAuthorizeService] client registry is required")
	}
	if providerRegistry == nil {
		return nil, errors.New("[NewAuthorizeService] provider registry is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewAuthorizeService] session manager is required")
	}
	if idTokenCache == nil {
		return nil, errors.New("[NewAuthorizeService] ID token cache is required")
	}

	s := &AuthorizeService{
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

// Authenticate runs the authorization flow. A client secret is required
// unless the code flow is requested; public clients use the code flow
// without one.
func (s *AuthorizeService) Authenticate(ctx context.Context, req *oauth2.AuthzRequest) (*oauth2.AuthzResponse, error) {
	rp, err := s.clients.LoadAndAuthRelyingParty(ctx, req.ClientID, req.ClientSecret,
		req.ResponseType != oauth2.CodeResponseType)
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate] relying party")
	}

	provider, err := s.providers.Get(rp.IdentityProvider)
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate] identity provider")
	}

	authResult, err := provider.Authenticate(ctx, providers.Input{
		RelyingParty: rp.Name,
		Data:         req.AuthData,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate] delegated authentication")
	}

	session, err := s.resolveSession(ctx, req, authResult, rp)
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate] session")
	}

	idToken, err := s.materializeIdToken(session, rp)
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate] ID token")
	}

	resp := buildAuthzResponse(req.RedirectURI, req.ClientID, session, authResult, idToken)
	log.Info().Str("client_id", req.ClientID).Msg("authorization succeeded")
	return resp, nil
}

// CrossAuthenticate adds a new relying party to an existing session on the
// strength of a valid refresh token, without re-running end-user
// authentication. The three preconditions resolve in parallel; each is
// mapped to its own classified error before the join so a fail-fast group
// never collapses distinct causes.
func (s *AuthorizeService) CrossAuthenticate(ctx context.Context, req *oauth2.AuthzRequest) (*oauth2.AuthzResponse, error) {
	var (
		externalRP *clients.RelyingParty
		session    *sessions.Session
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.clients.LoadAndAuthRelyingParty(gctx, req.ClientID, req.ClientSecret, true); err != nil {
			if errors.Is(err, clients.ErrClientNotFound) {
				return clients.ErrCredentialsWrong
			}
			return errors.Wrap(err, "[CrossAuthenticate] caller")
		}
		return nil
	})
	g.Go(func() error {
		rp, err := s.clients.LoadRelyingParty(gctx, req.ExternalClientID)
		if err != nil {
			return errors.Wrap(err, "[CrossAuthenticate] external client")
		}
		externalRP = rp
		return nil
	})
	g.Go(func() error {
		found, err := s.sessions.GetByValidRefreshToken(gctx, req.RefreshToken, s.nowFunc())
		if err != nil {
			return errors.Wrap(err, "[CrossAuthenticate] refresh token lookup")
		}
		if found == nil {
			return ErrTokenNotFound
		}
		session = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	session, err := s.sessions.AddEntry(ctx, session, externalRP, req.Scopes, req.RedirectURI)
	if err != nil {
		return nil, errors.Wrap(err, "[CrossAuthenticate] add entry")
	}

	resp := buildAuthzResponse(req.RedirectURI, req.ExternalClientID, session,
		&providers.Result{Status: providers.StatusNeedApproval}, nil)
	log.Info().Str("external_client_id", req.ExternalClientID).Msg("cross-authorization succeeded")
	return resp, nil
}

// resolveSession branches on the delegated authentication outcome. A
// non-success result means the identity provider issued its own
// authorization artifact: the response becomes pure passthrough, signalled
// by an empty session.
func (s *AuthorizeService) resolveSession(ctx context.Context, req *oauth2.AuthzRequest, authResult *providers.Result, rp *clients.RelyingParty) (*sessions.Session, error) {
	if authResult.Status != providers.StatusSuccess {
		return &sessions.Session{}, nil
	}
	if req.ResponseType == oauth2.TokenResponseType { // implicit flow
		return s.sessions.CreateSession(ctx, rp, authResult.Data, req.Scopes, req.RedirectURI)
	}
	return s.sessions.InitSession(ctx, rp, authResult.Data, req.Scopes, req.RedirectURI)
}

func (s *AuthorizeService) materializeIdToken(session *sessions.Session, rp *clients.RelyingParty) (*cache.CachedToken, error) {
	entry := session.Entry(rp.Name)
	if entry == nil || entry.LatestToken() == nil {
		return nil, nil
	}
	return s.idTokens.GetToken(session, rp, entry)
}

func buildAuthzResponse(redirectURL, clientID string, session *sessions.Session, authResult *providers.Result, idToken *cache.CachedToken) *oauth2.AuthzResponse {
	// authorization artifact sent by the identity provider itself
	if session == nil || len(session.Entries) == 0 {
		return &oauth2.AuthzResponse{
			Location: redirectURL,
			Data:     authResult.Data,
		}
	}

	entry := session.Entry(clientID)
	if entry == nil {
		return &oauth2.AuthzResponse{
			Location: redirectURL,
			Data:     authResult.Data,
		}
	}

	resp := &oauth2.AuthzResponse{
		Location: entry.RedirectURL,
		Data:     authResult.Data,
	}
	if accessToken := entry.LatestToken(); accessToken != nil { // implicit flow
		resp.Token = accessToken.Value
		resp.IdToken = idToken.IdToken
		resp.TokenType = oauth2.BearerTokenType
		resp.RefreshToken = entry.RefreshToken
		resp.ExpiresIn = accessToken.ExpiresAt.Unix()
	} else { // authorization code flow
		resp.Code = entry.AuthCode
		resp.ExpiresIn = entry.CodeExpiresAt.Unix()
	}
	return resp
}
