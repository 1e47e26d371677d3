package subscriptions

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("subscription not found")

type Repo interface {
	Insert(ctx context.Context, sub *Subscription) error
	GetByLeadID(ctx context.Context, leadID string) (*Subscription, error)
	List(ctx context.Context, offset, limit int) ([]*Subscription, error)
}
