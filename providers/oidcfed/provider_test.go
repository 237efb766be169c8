package oidcfed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-openid-server/providers/oidcfed"
)

func TestNewRequiresIssuerAndClientID(t *testing.T) {
	_, err := oidcfed.New(context.Background(), oidcfed.Config{})
	require.Error(t, err)

	_, err = oidcfed.New(context.Background(), oidcfed.Config{Issuer: "https://idp.example.com"})
	require.Error(t, err)
}
