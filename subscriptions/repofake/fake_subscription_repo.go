package fakesubscriptionrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/abrefacil/checkout-server/subscriptions"
)

var _ subscriptions.Repo = (*FakeSubscriptionRepo)(nil)

type FakeSubscriptionRepo struct {
	lock sync.RWMutex
	subs map[string]*subscriptions.Subscription
}

func NewFakeSubscriptionRepo() *FakeSubscriptionRepo {
	return &FakeSubscriptionRepo{subs: make(map[string]*subscriptions.Subscription)}
}

func (sr *FakeSubscriptionRepo) Insert(_ context.Context, sub *subscriptions.Subscription) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	copied := *sub
	sr.subs[sub.ID] = &copied
	return nil
}

func (sr *FakeSubscriptionRepo) GetByLeadID(_ context.Context, leadID string) (*subscriptions.Subscription, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	for _, sub := range sr.subs {
		if sub.LeadID == leadID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

func (sr *FakeSubscriptionRepo) List(_ context.Context, offset, limit int) ([]*subscriptions.Subscription, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	all := make([]*subscriptions.Subscription, 0, len(sr.subs))
	for _, sub := range sr.subs {
		copied := *sub
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
