package auth_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-openid-server/auth"
	"github.com/jrsteele09/go-openid-server/oauth2"
)

// codeGrant runs the first step of the authorization code flow and returns
// the issued code.
func codeGrant(t *testing.T, f *testFixture) string {
	t.Helper()

	resp, err := f.authorize.Authenticate(context.Background(), &oauth2.AuthzRequest{
		ClientID:     testClientID,
		ResponseType: oauth2.CodeResponseType,
		Scopes:       []string{"openid"},
		RedirectURI:  testRedirectURI,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Code)
	return resp.Code
}

func TestGetTokenCodeExchange(t *testing.T) {
	f := setupTestFixture(t)
	code := codeGrant(t, f)

	resp, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.AuthorizationCodeGrant,
		AuthzCode:    code,
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.IdToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, oauth2.BearerTokenType, resp.TokenType)
	require.Equal(t, testNow.Add(tokenTTL).Unix(), resp.ExpiresIn)
}

func TestGetTokenCodeReplayIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	code := codeGrant(t, f)

	req := &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.AuthorizationCodeGrant,
		AuthzCode:    code,
	}

	_, err := f.tokens.GetToken(context.Background(), req)
	require.NoError(t, err)

	// the code is unexpired but its entry already holds a token
	_, err = f.tokens.GetToken(context.Background(), req)
	require.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestGetTokenInvalidGrantType(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.GrantType("client_credentials"),
	})
	require.True(t, errors.Is(err, auth.ErrInvalidGrantType))
}

func TestGetTokenUnknownCode(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.AuthorizationCodeGrant,
		AuthzCode:    "unknown-code",
	})
	require.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestGetTokenRefreshGrant(t *testing.T) {
	f := setupTestFixture(t)
	grant := implicitGrant(t, f)

	resp, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.RefreshTokenGrant,
		RefreshToken: grant.RefreshToken,
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, grant.Token, resp.AccessToken)
	require.Equal(t, grant.RefreshToken, resp.RefreshToken)
	require.Equal(t, oauth2.BearerTokenType, resp.TokenType)
}

func TestGetTokenRefreshGrantUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.RefreshTokenGrant,
		RefreshToken: "unknown-refresh-token",
	})
	require.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestGetTokenProviderNativeCodeExchange(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.codeSupported = true

	// no pending session exists; the provider redeems the code itself
	resp, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.AuthorizationCodeGrant,
		Scopes:       []string{"openid"},
		AuthData:     map[string]string{"code": "upstream-code"},
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.IdToken)
	require.NotEmpty(t, resp.RefreshToken)
}

func TestCheckToken(t *testing.T) {
	f := setupTestFixture(t)
	code := codeGrant(t, f)

	grant, err := f.tokens.GetToken(context.Background(), &oauth2.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		GrantType:    oauth2.AuthorizationCodeGrant,
		AuthzCode:    code,
	})
	require.NoError(t, err)

	resp, err := f.tokens.CheckToken(context.Background(), &oauth2.CheckTokenRequest{
		Token:        grant.AccessToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.IdToken)
	require.Equal(t, testClientID, resp.ClientID)
	require.Equal(t, grant.ExpiresIn, resp.ExpiresIn)
	require.Equal(t, []string{"openid"}, resp.Scopes)
}

func TestCheckTokenDelegatedIntrospection(t *testing.T) {
	f := setupTestFixture(t)
	f.registerRelyingParty(t, externalClientID, externalSecret)
	grant := implicitGrant(t, f)

	// the caller authenticates with its own credentials but the response is
	// scoped to the external client
	resp, err := f.tokens.CheckToken(context.Background(), &oauth2.CheckTokenRequest{
		Token:            grant.Token,
		ClientID:         testClientID,
		ClientSecret:     testClientSecret,
		ExternalClientID: externalClientID,
	})
	require.NoError(t, err)
	require.Equal(t, externalClientID, resp.ClientID)
}

func TestCheckTokenUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.tokens.CheckToken(context.Background(), &oauth2.CheckTokenRequest{
		Token:        "unknown-token",
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	require.True(t, errors.Is(err, auth.ErrTokenNotFound))
}
