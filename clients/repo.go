package clients

import "context"

type Repo interface {
	Upsert(ctx context.Context, rp *RelyingParty) error
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*RelyingParty, error)
	List(ctx context.Context, offset, limit int) ([]*RelyingParty, error)
}
