package fakeleadrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/abrefacil/checkout-server/leads"
)

var _ leads.Repo = (*FakeLeadRepo)(nil)

type FakeLeadRepo struct {
	lock  sync.RWMutex
	leads map[string]*leads.Lead
}

func NewFakeLeadRepo() *FakeLeadRepo {
	return &FakeLeadRepo{leads: make(map[string]*leads.Lead)}
}

func (lr *FakeLeadRepo) Insert(_ context.Context, lead *leads.Lead) error {
	lr.lock.Lock()
	defer lr.lock.Unlock()

	copied := *lead
	lr.leads[lead.ID] = &copied
	return nil
}

func (lr *FakeLeadRepo) GetByID(_ context.Context, id string) (*leads.Lead, error) {
	lr.lock.RLock()
	defer lr.lock.RUnlock()

	lead, ok := lr.leads[id]
	if !ok {
		return nil, leads.ErrNotFound
	}
	copied := *lead
	return &copied, nil
}

func (lr *FakeLeadRepo) List(_ context.Context, offset, limit int) ([]*leads.Lead, error) {
	lr.lock.RLock()
	defer lr.lock.RUnlock()

	all := make([]*leads.Lead, 0, len(lr.leads))
	for _, lead := range lr.leads {
		copied := *lead
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
