package sessions

import "time"

// Status of a session.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
	StatusClosed  Status = "CLOSED"
)

// AuthType distinguishes how an entry joined its session.
type AuthType string

const (
	// AuthTypeCommon entries are created together with their session.
	AuthTypeCommon AuthType = "COMMON"

	// AuthTypeCross entries are added to an existing session through
	// cross-authorization, without re-running end-user authentication.
	AuthTypeCross AuthType = "CROSS"
)

// Token is an issued access token. Immutable once created; ExpiresAt is
// fixed as Created + the relying party's token TTL and never recomputed.
type Token struct {
	Value     string    `json:"token"`
	Created   time.Time `json:"created"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthEntry is one relying party's grant state within a session: its
// authorization code, refresh token, scopes and the access tokens issued so
// far. The token collection is append-only; the latest token is the most
// recently appended one.
type AuthEntry struct {
	RelyingParty          string    `json:"relyingParty"`
	AuthType              AuthType  `json:"authType"`
	AuthCode              string    `json:"authCode"`
	CodeExpiresAt         time.Time `json:"codeExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	Scopes                []string  `json:"scopes,omitempty"`
	RedirectURL           string    `json:"redirectUrl,omitempty"`
	Created               time.Time `json:"created"`
	Tokens                []*Token  `json:"tokens,omitempty"`
}

// AddToken appends an issued token. Prior tokens are never removed.
func (e *AuthEntry) AddToken(t *Token) {
	if t == nil {
		return
	}
	e.Tokens = append(e.Tokens, t)
}

// LatestToken returns the most recently issued token, or nil when the entry
// is still pending code exchange.
func (e *AuthEntry) LatestToken() *Token {
	if len(e.Tokens) == 0 {
		return nil
	}
	return e.Tokens[len(e.Tokens)-1]
}

// Session is the durable record of one authenticated identity, shared across
// possibly multiple relying parties via entries. UserInfo is the signed claim
// envelope produced once at creation; this core never decodes it again.
type Session struct {
	ID               string       `json:"id"`
	IdentityProvider string       `json:"identityProvider"`
	Status           Status       `json:"status"`
	Created          time.Time    `json:"created"`
	ExpiresAt        time.Time    `json:"expiresAt"`
	UserInfo         string       `json:"userInfo"`
	Entries          []*AuthEntry `json:"entries,omitempty"`
}

// Entry returns the entry belonging to a relying party, or nil. A session
// holds at most one entry per relying party.
func (s *Session) Entry(relyingParty string) *AuthEntry {
	for _, entry := range s.Entries {
		if entry.RelyingParty == relyingParty {
			return entry
		}
	}
	return nil
}

// EntryByToken returns the entry and token matching an issued token value.
func (s *Session) EntryByToken(value string) (*AuthEntry, *Token) {
	for _, entry := range s.Entries {
		for _, t := range entry.Tokens {
			if t.Value == value {
				return entry, t
			}
		}
	}
	return nil, nil
}

// AddEntry appends an entry to the session.
func (s *Session) AddEntry(entry *AuthEntry) {
	if entry == nil {
		return
	}
	s.Entries = append(s.Entries, entry)
}
