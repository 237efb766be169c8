package clients

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RelyingParty is a registered client application delegating end-user
// authentication to this server. Its Name doubles as the OAuth2 client id:
// session entries are keyed by it. The configuration is immutable; it is
// loaded fresh for every request.
type RelyingParty struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	SecretHash       string `json:"secretHash"`
	IdentityProvider string `json:"identityProvider"`
	RedirectURI      string `json:"redirectURI,omitempty"`

	// TTLs for the artifacts minted on behalf of this relying party.
	// Every expiry is fixed at creation time as created + TTL.
	SessionTTL      time.Duration `json:"sessionTTL"`
	TokenTTL        time.Duration `json:"tokenTTL"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTTL"`
	CodeTTL         time.Duration `json:"codeTTL"`
}

// HashSecret hashes a client secret for storage.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecretHash compares a presented secret against a stored hash.
func CheckSecretHash(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
