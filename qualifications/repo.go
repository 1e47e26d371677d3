package qualifications

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("qualification not found")

type Repo interface {
	Insert(ctx context.Context, q *Qualification) error
	GetByLeadID(ctx context.Context, leadID string) (*Qualification, error)
}
