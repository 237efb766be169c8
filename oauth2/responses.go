package oauth2

// AuthzResponse is the result of an authorization endpoint call.
// Exactly one of three shapes is populated:
//   - provider passthrough: Location and Data only (the identity provider
//     issued its own authorization artifact)
//   - pending grant: Code and ExpiresIn (authorization code flow)
//   - full grant: Token, IdToken, TokenType, RefreshToken and ExpiresIn
//     (implicit flow)
type AuthzResponse struct {
	Location     string         `json:"location,omitempty"`
	Code         string         `json:"code,omitempty"`
	Token        string         `json:"token,omitempty"`
	IdToken      string         `json:"id_token,omitempty"`
	TokenType    TokenType      `json:"token_type,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresIn    int64          `json:"expires_in,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// TokenResponse is the result of a token endpoint call.
// ExpiresIn is the Unix timestamp of the access token's expiry instant.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	IdToken      string    `json:"id_token,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in"`
}

// CheckTokenResponse is the result of a token introspection call.
type CheckTokenResponse struct {
	IdToken   string   `json:"id_token"`
	ClientID  string   `json:"client_id"`
	ExpiresIn int64    `json:"expires_in"`
	Scopes    []string `json:"scope,omitempty"`
}
