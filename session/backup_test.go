package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abrefacil/checkout-server/session"
)

func TestBackupRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	store := session.NewMemoryStore()
	reader := session.NewReader(store, "sb-proj-auth-token", "")
	backup := session.NewBackup(store, reader)

	s := completeSession(now.Add(time.Hour).Unix())
	require.NoError(t, backup.Write(s))

	got := backup.Read()
	require.NotNil(t, got)
	require.Equal(t, s.AccessToken, got.AccessToken)
	require.Equal(t, s.RefreshToken, got.RefreshToken)
	require.Equal(t, "user-1", got.UserID())

	// The backup lives alongside the primary slot, never in it.
	_, err := store.Get("sb-proj-auth-token" + session.BackupSuffix)
	require.NoError(t, err)
	require.Nil(t, reader.ReadStored())
}

func TestBackupRejectsIncompleteSession(t *testing.T) {
	store := session.NewMemoryStore()
	reader := session.NewReader(store, "sb-proj-auth-token", "")
	backup := session.NewBackup(store, reader)

	require.Error(t, backup.Write(nil))
	require.Error(t, backup.Write(&session.Session{AccessToken: "only-this"}))
	require.Nil(t, backup.Read())
}

func TestBackupClearIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	store := session.NewMemoryStore()
	reader := session.NewReader(store, "sb-proj-auth-token", "")
	backup := session.NewBackup(store, reader)

	require.NoError(t, backup.Write(completeSession(now.Add(time.Hour).Unix())))
	require.NoError(t, backup.Clear())
	require.Nil(t, backup.Read())
	require.NoError(t, backup.Clear())
}

func TestBackupUnresolvableKey(t *testing.T) {
	store := session.NewMemoryStore()
	reader := session.NewReader(store, "", "")
	backup := session.NewBackup(store, reader)

	require.Error(t, backup.Write(completeSession(0)))
	require.Nil(t, backup.Read())
	require.NoError(t, backup.Clear())
}

func TestBackupCorruptEnvelopeReadsAsAbsent(t *testing.T) {
	store := session.NewMemoryStore()
	reader := session.NewReader(store, "sb-proj-auth-token", "")
	backup := session.NewBackup(store, reader)

	require.NoError(t, store.Set("sb-proj-auth-token"+session.BackupSuffix, []byte("{broken")))
	require.Nil(t, backup.Read())
}
