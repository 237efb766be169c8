package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines how the token request resolves its backing session.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// The code must belong to an entry that has not been redeemed yet;
	// a second exchange of the same code is rejected.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a valid refresh token for a new access token.
	// The refresh token itself is not rotated; the session keeps its history.
	RefreshTokenGrant GrantType = "refresh_token"

	// AuthenticationTokenGrant behaves like RefreshTokenGrant but is issued
	// by an identity provider that authenticated the user out of band.
	AuthenticationTokenGrant GrantType = "authentication_token"
)

// AuthzResponseType represents the OAuth 2.0 response type requested at the
// authorization endpoint.
type AuthzResponseType string

const (
	// CodeResponseType indicates the authorization code flow. Public clients
	// may use this flow without presenting a client secret.
	CodeResponseType AuthzResponseType = "code"

	// TokenResponseType indicates the implicit flow: the access token is
	// issued directly from the authorization endpoint.
	TokenResponseType AuthzResponseType = "token"
)

// TokenType indicates how an issued access token is to be presented.
type TokenType string

// BearerTokenType is the only token type issued by this server.
const BearerTokenType TokenType = "BEARER"
