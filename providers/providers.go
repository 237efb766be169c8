package providers

import "context"

// Status is the outcome classification of a delegated authentication.
type Status string

const (
	// StatusSuccess means the provider authenticated the user and returned
	// the claim bundle describing the identity.
	StatusSuccess Status = "SUCCESS"

	// StatusNeedApproval means the provider requires a further interaction
	// (consent, second factor, out-of-band code) before tokens can be issued.
	StatusNeedApproval Status = "NEED_APPROVAL"

	// StatusFailed means the provider rejected the authentication attempt.
	StatusFailed Status = "FAILED"
)

// Input is the opaque authentication payload forwarded to a provider.
type Input struct {
	RelyingParty string
	Data         map[string]string
}

// Result is the outcome of a delegated authentication. Data carries the
// identity claims when Status is SUCCESS, or provider-issued artifacts
// otherwise (passed through to the caller untouched).
type Result struct {
	Status Status
	Data   map[string]any
}

// Provider authenticates end users on behalf of a relying party.
type Provider interface {
	// SupportsAuthorizationCode reports whether the provider performs its
	// own authorization-code exchange. When true, the token endpoint
	// delegates code redemption to the provider instead of the session store.
	SupportsAuthorizationCode() bool

	Authenticate(ctx context.Context, in Input) (*Result, error)
}
