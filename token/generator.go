package token

import "github.com/google/uuid"

// ValueGenerator mints practically-unique opaque strings for authorization
// codes, refresh tokens and access tokens.
type ValueGenerator interface {
	Generate() string
}

var _ ValueGenerator = UUIDGenerator{}

// UUIDGenerator generates random UUID values.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string {
	return uuid.New().String()
}
