package fakeformationrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/abrefacil/checkout-server/formations"
)

var _ formations.Repo = (*FakeFormationRepo)(nil)

type FakeFormationRepo struct {
	lock       sync.RWMutex
	formations map[string]*formations.CompanyFormation
	partners   map[string][]*formations.Partner
	documents  map[string][]*formations.Document

	// FailInsertPartners simulates a storage failure for the partner
	// batch, used to exercise the blocking-failure path.
	FailInsertPartners error
	// FailInsertDocument simulates a storage failure for document rows,
	// used to exercise the non-blocking path.
	FailInsertDocument error
	// FailInsertFormation fails the formation insert itself. When
	// FailInsertFormationOnce is set the failure clears after one call.
	FailInsertFormation     error
	FailInsertFormationOnce bool
}

func NewFakeFormationRepo() *FakeFormationRepo {
	return &FakeFormationRepo{
		formations: make(map[string]*formations.CompanyFormation),
		partners:   make(map[string][]*formations.Partner),
		documents:  make(map[string][]*formations.Document),
	}
}

func (fr *FakeFormationRepo) InsertFormation(_ context.Context, formation *formations.CompanyFormation) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if fr.FailInsertFormation != nil {
		err := fr.FailInsertFormation
		if fr.FailInsertFormationOnce {
			fr.FailInsertFormation = nil
		}
		return err
	}

	copied := *formation
	fr.formations[formation.ID] = &copied
	return nil
}

func (fr *FakeFormationRepo) InsertPartners(_ context.Context, partners []*formations.Partner) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if fr.FailInsertPartners != nil {
		return fr.FailInsertPartners
	}
	if len(partners) == 0 {
		return errors.New("empty partner batch")
	}

	for _, p := range partners {
		copied := *p
		fr.partners[p.CompanyFormationID] = append(fr.partners[p.CompanyFormationID], &copied)
	}
	return nil
}

func (fr *FakeFormationRepo) InsertDocument(_ context.Context, doc *formations.Document) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if fr.FailInsertDocument != nil {
		return fr.FailInsertDocument
	}

	copied := *doc
	fr.documents[doc.CompanyFormationID] = append(fr.documents[doc.CompanyFormationID], &copied)
	return nil
}

func (fr *FakeFormationRepo) GetByID(_ context.Context, id string) (*formations.CompanyFormation, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	formation, ok := fr.formations[id]
	if !ok {
		return nil, formations.ErrNotFound
	}
	copied := *formation
	return &copied, nil
}

func (fr *FakeFormationRepo) PartnersByFormation(_ context.Context, formationID string) ([]*formations.Partner, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	out := make([]*formations.Partner, 0, len(fr.partners[formationID]))
	for _, p := range fr.partners[formationID] {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (fr *FakeFormationRepo) DocumentsByFormation(_ context.Context, formationID string) ([]*formations.Document, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	out := make([]*formations.Document, 0, len(fr.documents[formationID]))
	for _, d := range fr.documents[formationID] {
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}

func (fr *FakeFormationRepo) ListByUser(_ context.Context, userID string) ([]*formations.CompanyFormation, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	out := make([]*formations.CompanyFormation, 0)
	for _, formation := range fr.formations {
		if formation.UserID == userID {
			copied := *formation
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
