package kvstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFileStoreBasicOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path, nil, testLogger())

	require.True(t, s.Available())

	_, ok := s.Get("auth_token")
	require.False(t, ok)

	require.True(t, s.Set("auth_token", "abc|123"))
	v, ok := s.Get("auth_token")
	require.True(t, ok)
	require.Equal(t, "abc|123", v)

	// Values survive a fresh handle over the same file.
	s2 := NewFileStore(path, nil, testLogger())
	v, ok = s2.Get("auth_token")
	require.True(t, ok)
	require.Equal(t, "abc|123", v)

	require.True(t, s.Remove("auth_token"))
	_, ok = s.Get("auth_token")
	require.False(t, ok)

	// Removing an absent key still succeeds.
	require.True(t, s.Remove("auth_token"))
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path, nil, testLogger())

	s.Set("auth_token", "abc|123")
	s.Set("auth_user", `{"id":7}`)

	require.True(t, s.Clear())
	_, ok := s.Get("auth_token")
	require.False(t, ok)
	_, ok = s.Get("auth_user")
	require.False(t, ok)
}

func TestFileStoreUnavailable(t *testing.T) {
	// Using a regular file as the parent directory makes MkdirAll fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := NewFileStore(filepath.Join(blocker, "session.json"), nil, testLogger())
	require.False(t, s.Available())
	require.False(t, s.Set("auth_token", "abc|123"))
	_, ok := s.Get("auth_token")
	require.False(t, ok)

	// Watching an unavailable store is a no-op with a callable unsubscribe.
	unwatch := s.Watch(func(Change) {})
	unwatch()
}

func TestFileStoreWatchSeesOtherHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	hub := NewHub()
	writer := NewFileStore(path, hub, testLogger())
	reader := NewFileStore(path, hub, testLogger())

	events := make(chan Change, 16)
	unwatch := reader.Watch(func(c Change) { events <- c })
	defer unwatch()

	writer.Set("auth_token", "abc|123")

	select {
	case c := <-events:
		require.Equal(t, "auth_token", c.Key)
		require.True(t, c.NewOK)
		require.Equal(t, "abc|123", c.New)
		require.False(t, c.OldOK)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event from other handle")
	}

	writer.Remove("auth_token")

	select {
	case c := <-events:
		require.Equal(t, "auth_token", c.Key)
		require.False(t, c.NewOK)
		require.Equal(t, "abc|123", c.Old)
		require.True(t, c.OldOK)
	case <-time.After(2 * time.Second):
		t.Fatal("no removal event from other handle")
	}
}

func TestFileStoreWatchDoesNotEchoOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path, nil, testLogger())

	events := make(chan Change, 16)
	unwatch := s.Watch(func(c Change) { events <- c })
	defer unwatch()

	s.Set("auth_token", "abc|123")
	s.Remove("auth_token")

	select {
	case c := <-events:
		t.Fatalf("own write echoed back: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileStorePollDetectsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path, nil, testLogger())
	s.PollInterval = 10 * time.Millisecond

	s.Set("auth_token", "abc|123")

	events := make(chan Change, 16)
	unwatch := s.Watch(func(c Change) { events <- c })
	defer unwatch()

	// Another process rewrites the file directly.
	data, err := json.Marshal(map[string]string{"auth_token": "def|456"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	select {
	case c := <-events:
		require.Equal(t, "auth_token", c.Key)
		require.Equal(t, "def|456", c.New)
		require.Equal(t, "abc|123", c.Old)
		require.True(t, c.OldOK)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not pick up external write")
	}

	// And deletes a key.
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	select {
	case c := <-events:
		require.Equal(t, "auth_token", c.Key)
		require.False(t, c.NewOK)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not pick up external removal")
	}

	// The mirror was reconciled, so Get agrees with the file.
	_, ok := s.Get("auth_token")
	require.False(t, ok)
}

func TestFileStoreUnsubscribeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	hub := NewHub()
	a := NewFileStore(path, hub, testLogger())
	b := NewFileStore(path, hub, testLogger())

	events := make(chan Change, 16)
	unwatch := b.Watch(func(c Change) { events <- c })

	a.Set("k", "1")
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no change event before unsubscribe")
	}

	unwatch()
	unwatch() // second call must be a no-op

	a.Set("k", "2")
	select {
	case c := <-events:
		t.Fatalf("event delivered after unsubscribe: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}
