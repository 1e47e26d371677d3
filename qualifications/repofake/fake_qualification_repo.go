package fakequalificationrepo

import (
	"context"
	"sync"

	"github.com/abrefacil/checkout-server/qualifications"
)

var _ qualifications.Repo = (*FakeQualificationRepo)(nil)

type FakeQualificationRepo struct {
	lock   sync.RWMutex
	byLead map[string]*qualifications.Qualification
}

func NewFakeQualificationRepo() *FakeQualificationRepo {
	return &FakeQualificationRepo{byLead: make(map[string]*qualifications.Qualification)}
}

func (qr *FakeQualificationRepo) Insert(_ context.Context, q *qualifications.Qualification) error {
	qr.lock.Lock()
	defer qr.lock.Unlock()

	copied := *q
	qr.byLead[q.LeadID] = &copied
	return nil
}

func (qr *FakeQualificationRepo) GetByLeadID(_ context.Context, leadID string) (*qualifications.Qualification, error) {
	qr.lock.RLock()
	defer qr.lock.RUnlock()

	q, ok := qr.byLead[leadID]
	if !ok {
		return nil, qualifications.ErrNotFound
	}
	copied := *q
	return &copied, nil
}
