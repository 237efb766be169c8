package sessions

import (
	"context"
	"time"
)

// Store is the durable persistence behind sessions. Implementations must
// serialize concurrent redemption of the same credential so that at most one
// caller observes the not-yet-redeemed state.
//
// The GetByValid* lookups return (nil, nil) when no session matches or the
// matching credential's expiry does not strictly exceed now; absent and
// expired are indistinguishable at this layer. Callers convert the nil
// completion into a domain error before it can reach a caller as a silent
// success.
type Store interface {
	Create(ctx context.Context, session *Session) error
	AddToken(ctx context.Context, sessionID, relyingParty string, t *Token) error
	AddEntry(ctx context.Context, sessionID string, entry *AuthEntry) error

	GetByValidCode(ctx context.Context, code string, now time.Time) (*Session, error)
	GetByValidRefreshToken(ctx context.Context, refreshToken string, now time.Time) (*Session, error)
	GetByValidToken(ctx context.Context, token string, now time.Time) (*Session, error)
}
