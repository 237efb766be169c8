package oauth2

// AuthzRequest carries the parameters of an authorization endpoint call.
// Wire parsing is owned by the transport layer; this is the parsed form.
type AuthzRequest struct {
	ClientID     string            `json:"client_id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	ResponseType AuthzResponseType `json:"response_type"`
	Scopes       []string          `json:"scope,omitempty"`
	RedirectURI  string            `json:"redirect_uri,omitempty"`

	// ExternalClientID and RefreshToken drive cross-authorization: adding a
	// new relying party to an existing session without re-authenticating the
	// end user.
	ExternalClientID string `json:"external_client_id,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`

	// AuthData is passed through opaquely to the identity provider.
	AuthData map[string]string `json:"auth_data,omitempty"`
}

// TokenRequest carries the parameters of a token endpoint call.
type TokenRequest struct {
	ClientID     string            `json:"client_id"`
	ClientSecret string            `json:"client_secret"`
	GrantType    GrantType         `json:"grant_type"`
	AuthzCode    string            `json:"code,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	Scopes       []string          `json:"scope,omitempty"`
	AuthData     map[string]string `json:"auth_data,omitempty"`
}

// CheckTokenRequest carries the parameters of a token introspection call.
// When ExternalClientID is set the caller authenticates with its own
// credentials but the response is scoped to the external client.
type CheckTokenRequest struct {
	Token            string `json:"token"`
	ClientID         string `json:"client_id"`
	ClientSecret     string `json:"client_secret"`
	ExternalClientID string `json:"external_client_id,omitempty"`
}
