package auth

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidGrantType = errors.New("invalid grant type")
)
