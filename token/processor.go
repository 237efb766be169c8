package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Processor signs opaque claim bundles. Both the session-wide userInfo
// envelope and materialized ID tokens are produced through it; nothing in
// the lifecycle core ever decodes what it returns.
type Processor interface {
	CreateToken(secret, keyID string, issuedAt, expiresAt time.Time, audience string, scopes []string, subject string, claims map[string]any) (string, error)
}

var _ Processor = (*JWTProcessor)(nil)

// JWTProcessor signs claim bundles as HS256 JWTs.
type JWTProcessor struct{}

func NewJWTProcessor() *JWTProcessor {
	return &JWTProcessor{}
}

func (p *JWTProcessor) CreateToken(secret, keyID string, issuedAt, expiresAt time.Time, audience string, scopes []string, subject string, claims map[string]any) (string, error) {
	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}

	mapClaims["aud"] = audience
	mapClaims["iat"] = issuedAt.Unix()
	mapClaims["exp"] = expiresAt.Unix()
	mapClaims["jti"] = uuid.New().String()
	if subject != "" {
		mapClaims["sub"] = subject
	}
	if len(scopes) > 0 {
		mapClaims["scope"] = strings.Join(scopes, " ")
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	if keyID != "" {
		jwtToken.Header["kid"] = keyID
	}

	signed, err := jwtToken.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "[JWTProcessor.CreateToken] signing")
	}
	return signed, nil
}
