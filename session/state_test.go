package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abrefacil/checkout-server/session"
	"github.com/abrefacil/checkout-server/session/clientfakes"
)

func newHarness(t *testing.T) (session.Store, *session.Reader, *session.Backup, *session.State) {
	t.Helper()
	store := session.NewMemoryStore()
	reader := session.NewReader(store, "sb-proj-auth-token", "")
	backup := session.NewBackup(store, reader)
	return store, reader, backup, session.NewState(reader, backup)
}

func TestStateBindAdoptsValidStoredSession(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	store, _, backup, st := newHarness(t)
	mustPut(t, store, "sb-proj-auth-token", completeSession(now.Add(time.Hour).Unix()))

	client := clientfakes.New()
	unsubscribe := st.Bind(context.Background(), client)
	defer unsubscribe()

	require.False(t, st.Loading())
	require.Equal(t, "user-1", st.UserID())
	// The client is hydrated so its own calls run authenticated.
	require.EqualValues(t, 1, client.SetSessionCalls())
	// Every adopted session is mirrored into the backup slot.
	require.NotNil(t, backup.Read())

	select {
	case <-st.Ready():
	default:
		t.Fatal("state should be ready after bind")
	}
}

func TestStateBindFallsBackToClient(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	_, _, _, st := newHarness(t)
	client := clientfakes.New()
	client.CurrentSessionFunc = func(ctx context.Context) (*session.Session, error) {
		return completeSession(now.Add(time.Hour).Unix()), nil
	}

	defer st.Bind(context.Background(), client)()

	require.Equal(t, "user-1", st.UserID())
	require.EqualValues(t, 0, client.SetSessionCalls())
}

func TestStateBindSignedOut(t *testing.T) {
	_, _, _, st := newHarness(t)
	defer st.Bind(context.Background(), clientfakes.New())()

	require.False(t, st.Loading())
	require.Empty(t, st.UserID())
}

func TestStateRecoversFromSpuriousSignOut(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	t.Run("from the primary slot", func(t *testing.T) {
		store, _, _, st := newHarness(t)
		mustPut(t, store, "sb-proj-auth-token", completeSession(now.Add(time.Hour).Unix()))

		st.Apply(session.EventSignedOut, nil)
		require.Equal(t, "user-1", st.UserID())
	})

	t.Run("from the backup slot", func(t *testing.T) {
		_, _, backup, st := newHarness(t)
		require.NoError(t, backup.Write(completeSession(now.Add(time.Hour).Unix())))

		st.Apply(session.EventSignedOut, nil)
		require.Equal(t, "user-1", st.UserID())
	})

	t.Run("expired slots are not resurrected", func(t *testing.T) {
		store, _, backup, st := newHarness(t)
		mustPut(t, store, "sb-proj-auth-token", completeSession(now.Add(-time.Hour).Unix()))
		require.NoError(t, backup.Write(completeSession(now.Add(-time.Hour).Unix())))

		st.Apply(session.EventSignedOut, nil)
		require.Empty(t, st.UserID())
	})

	t.Run("explicit session always wins", func(t *testing.T) {
		_, _, _, st := newHarness(t)
		s := completeSession(now.Add(time.Hour).Unix())
		st.Apply(session.EventSignedIn, s)
		require.Equal(t, "user-1", st.UserID())
	})
}

func TestStateReadyClosesExactlyOnce(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	_, _, _, st := newHarness(t)
	require.True(t, st.Loading())

	st.Adopt(session.EventInitialSession, nil)
	require.False(t, st.Loading())

	// A later sign-in changes the session but never the readiness.
	st.Adopt(session.EventSignedIn, completeSession(now.Add(time.Hour).Unix()))
	require.False(t, st.Loading())

	select {
	case <-st.Ready():
	default:
		t.Fatal("ready channel should be closed")
	}
}

func TestStateSubscribe(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	_, _, _, st := newHarness(t)

	var events []session.Event
	unsubscribe := st.Subscribe(func(event session.Event, _ *session.Session) {
		events = append(events, event)
	})

	st.Adopt(session.EventSignedIn, completeSession(now.Add(time.Hour).Unix()))
	unsubscribe()
	st.Adopt(session.EventSignedOut, nil)

	require.Equal(t, []session.Event{session.EventSignedIn}, events)
}
