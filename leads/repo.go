package leads

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("lead not found")

type Repo interface {
	Insert(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, offset, limit int) ([]*Lead, error)
}
