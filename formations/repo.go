package formations

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("company formation not found")

type Repo interface {
	InsertFormation(ctx context.Context, formation *CompanyFormation) error
	InsertPartners(ctx context.Context, partners []*Partner) error
	InsertDocument(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id string) (*CompanyFormation, error)
	PartnersByFormation(ctx context.Context, formationID string) ([]*Partner, error)
	DocumentsByFormation(ctx context.Context, formationID string) ([]*Document, error)
	ListByUser(ctx context.Context, userID string) ([]*CompanyFormation, error)
}
