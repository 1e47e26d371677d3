package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// State holds the in-memory session for the lifetime of the process.
//
// It starts loading and becomes ready exactly once; after that only the
// session changes, never the readiness. All mutation happens behind one
// mutex, and every adopted non-nil session is mirrored into the backup
// slot.
type State struct {
	mu      sync.RWMutex
	current *Session
	loading bool

	ready     chan struct{}
	readyOnce sync.Once

	subs   map[int]func(Event, *Session)
	nextID int

	reader *Reader
	backup *Backup
}

func NewState(reader *Reader, backup *Backup) *State {
	return &State{
		loading: true,
		ready:   make(chan struct{}),
		subs:    make(map[int]func(Event, *Session)),
		reader:  reader,
		backup:  backup,
	}
}

// Bind subscribes the state to the client's notification stream and
// performs the boot-time hydration: a valid stored session is adopted
// synchronously (no network round trip); otherwise the client itself is
// asked, which may go to the network.
func (st *State) Bind(ctx context.Context, client Client) func() {
	unsubscribe := client.Subscribe(st.Apply)

	if stored := st.reader.ReadStored(); stored.Valid() {
		// Hydrate the client too, otherwise its provider calls would
		// still run unauthenticated.
		if err := client.SetSession(ctx, stored); err != nil {
			log.Warn().Err(err).Msg("session: failed to hydrate client from storage")
		}
		st.adopt(EventInitialSession, stored)
		return unsubscribe
	}

	current, err := client.CurrentSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session: boot-time session fetch failed")
	}
	st.adopt(EventInitialSession, current)
	return unsubscribe
}

// Apply reconciles a notification from the client against local
// storage. A nil session on first load or sign-out is suspicious: the
// client is known to clear its own slot on failed refreshes, so we try
// to recover from the primary slot and then the backup before accepting
// "signed out".
func (st *State) Apply(event Event, s *Session) {
	if s == nil && (event == EventInitialSession || event == EventSignedOut) {
		if recovered := st.reader.ReadStored(); recovered.Valid() {
			st.adopt(event, recovered)
			return
		}
		if recovered := st.backup.Read(); recovered.Valid() {
			st.adopt(event, recovered)
			return
		}
	}
	st.adopt(event, s)
}

// adopt installs the session, marks the state ready, mirrors non-nil
// sessions into the backup and notifies subscribers.
func (st *State) adopt(event Event, s *Session) {
	st.mu.Lock()
	st.current = s
	st.loading = false
	listeners := make([]func(Event, *Session), 0, len(st.subs))
	for _, fn := range st.subs {
		listeners = append(listeners, fn)
	}
	st.mu.Unlock()

	st.readyOnce.Do(func() { close(st.ready) })

	if s != nil {
		if err := st.backup.Write(s); err != nil {
			log.Warn().Err(err).Msg("session: backup write failed")
		}
	}

	for _, fn := range listeners {
		fn(event, s)
	}
}

// Adopt installs an externally resolved session (storage recovery,
// refresh result) so later callers short-circuit on the in-memory copy.
func (st *State) Adopt(event Event, s *Session) {
	st.adopt(event, s)
}

// Session returns the current session, which may be nil.
func (st *State) Session() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// UserID returns the current user id, or "".
func (st *State) UserID() string {
	return st.Session().UserID()
}

// Loading reports whether the state is still waiting for its first
// signal. Once false it never becomes true again.
func (st *State) Loading() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.loading
}

// Ready is closed once the state has initialized.
func (st *State) Ready() <-chan struct{} {
	return st.ready
}

// Subscribe registers an observer for adopted sessions. The returned
// function unsubscribes.
func (st *State) Subscribe(fn func(Event, *Session)) func() {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	return func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		delete(st.subs, id)
	}
}
