// Package clientfakes provides a configurable in-memory session.Client
// for tests.
package clientfakes

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/abrefacil/checkout-server/session"
)

// FakeClient implements session.Client with overridable behavior and
// call counters. The zero value behaves as a signed-out client.
type FakeClient struct {
	CurrentSessionFunc func(ctx context.Context) (*session.Session, error)
	RefreshSessionFunc func(ctx context.Context, refreshToken string) (*session.Session, error)
	SignInFunc         func(ctx context.Context, email, password string) (*session.Session, error)
	SetSessionFunc     func(ctx context.Context, s *session.Session) error
	SignOutFunc        func(ctx context.Context) error

	currentSessionCalls atomic.Int64
	refreshCalls        atomic.Int64
	setSessionCalls     atomic.Int64
	signOutCalls        atomic.Int64

	mu     sync.Mutex
	subs   map[int]func(session.Event, *session.Session)
	nextID int
}

func New() *FakeClient {
	return &FakeClient{subs: make(map[int]func(session.Event, *session.Session))}
}

func (f *FakeClient) CurrentSession(ctx context.Context) (*session.Session, error) {
	f.currentSessionCalls.Add(1)
	if f.CurrentSessionFunc != nil {
		return f.CurrentSessionFunc(ctx)
	}
	return nil, nil
}

func (f *FakeClient) RefreshSession(ctx context.Context, refreshToken string) (*session.Session, error) {
	f.refreshCalls.Add(1)
	if f.RefreshSessionFunc != nil {
		return f.RefreshSessionFunc(ctx, refreshToken)
	}
	return nil, nil
}

func (f *FakeClient) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return nil, nil
}

func (f *FakeClient) SetSession(ctx context.Context, s *session.Session) error {
	f.setSessionCalls.Add(1)
	if f.SetSessionFunc != nil {
		return f.SetSessionFunc(ctx, s)
	}
	return nil
}

func (f *FakeClient) SignOut(ctx context.Context) error {
	f.signOutCalls.Add(1)
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	f.Emit(session.EventSignedOut, nil)
	return nil
}

func (f *FakeClient) Subscribe(fn func(session.Event, *session.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[int]func(session.Event, *session.Session))
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Emit delivers an auth-state event to all subscribers.
func (f *FakeClient) Emit(event session.Event, s *session.Session) {
	f.mu.Lock()
	listeners := make([]func(session.Event, *session.Session), 0, len(f.subs))
	for _, fn := range f.subs {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}

func (f *FakeClient) CurrentSessionCalls() int64 { return f.currentSessionCalls.Load() }
func (f *FakeClient) RefreshCalls() int64        { return f.refreshCalls.Load() }
func (f *FakeClient) SetSessionCalls() int64     { return f.setSessionCalls.Load() }
func (f *FakeClient) SignOutCalls() int64        { return f.signOutCalls.Load() }
