package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayleaf-dev/dayleaf/internal/kvstore"
)

// Two session stores over the same durable file, wired through one hub,
// stand in for two client contexts sharing a storage area.
func TestCrossContextConvergence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	hub := kvstore.NewHub()

	kvA := kvstore.NewFileStore(path, hub, testLogger())
	kvB := kvstore.NewFileStore(path, hub, testLogger())

	a := New(kvA, testLogger())
	b := New(kvB, testLogger())
	a.Init()
	b.Init()

	defer a.WatchChanges()()
	defer b.WatchChanges()()

	a.SetAuthData("abc|123", testUser())

	require.Eventually(t, func() bool {
		st := b.Snapshot()
		return st.IsAuthenticated && st.Token == "abc|123" && st.User != nil && st.User.ID == 7
	}, 2*time.Second, 10*time.Millisecond, "login did not propagate to the other context")

	// Logout in one context logs out the other.
	a.Clear()

	require.Eventually(t, func() bool {
		st := b.Snapshot()
		return !st.IsAuthenticated && st.Token == ""
	}, 2*time.Second, 10*time.Millisecond, "logout did not propagate to the other context")

	// And the first context never saw an echo of its own writes as state
	// corruption: it agrees with the second.
	require.Equal(t, "", a.Snapshot().Token)
}
