package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLifecycle(store *Store, onExpired func()) *Lifecycle {
	l := NewLifecycle(store, onExpired, testLogger())
	l.interval = 10 * time.Millisecond
	return l
}

func TestLifecycleExpiresIdleSession(t *testing.T) {
	s, kv, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	expired := make(chan struct{}, 1)
	l := newTestLifecycle(s, func() { expired <- struct{}{} })
	l.Start()
	defer l.Stop()

	// Session still active, the periodic check leaves it alone.
	time.Sleep(50 * time.Millisecond)
	require.True(t, s.IsSessionValid())

	clock.advance(2 * time.Hour)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback never fired")
	}

	require.False(t, s.IsSessionValid())
	_, ok := kv.Get(KeyToken)
	require.False(t, ok, "expired session must be removed from the durable store")
}

func TestLifecycleIgnoresUnauthenticatedStore(t *testing.T) {
	s, _, _ := newTestStore(t)

	var mu sync.Mutex
	fired := false
	l := newTestLifecycle(s, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	l.Start()

	time.Sleep(50 * time.Millisecond)
	l.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.False(t, fired, "no session, no expiry callback")
}

func TestLifecycleTouch(t *testing.T) {
	s, kv, clock := newTestStore(t)
	l := newTestLifecycle(s, nil)

	// Touching without a session writes nothing.
	l.Touch()
	_, ok := kv.Get(KeyLastActivity)
	require.False(t, ok)

	s.SetAuthData("abc|123", testUser())
	clock.advance(30 * time.Minute)
	l.Touch()

	require.Equal(t, clock.t.UnixMilli(), s.Snapshot().LastActivity.UnixMilli())
}

func TestLifecycleStopIsIdempotent(t *testing.T) {
	s, _, _ := newTestStore(t)

	l := newTestLifecycle(s, nil)
	l.Start()
	l.Start() // second Start is a no-op

	l.Stop()
	l.Stop()
}

func TestLifecycleStopWithoutStart(t *testing.T) {
	s, _, _ := newTestStore(t)
	l := newTestLifecycle(s, nil)

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a started controller")
	}
}
