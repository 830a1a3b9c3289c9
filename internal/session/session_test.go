package session

import (
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dayleaf-dev/dayleaf/internal/kvstore"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeClock is a settable time source for expiry tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testUser() *User {
	return &User{
		ID:       7,
		Name:     "John Doe",
		Username: "jdoe",
		Email:    "jdoe@example.com",
	}
}

func newTestStore(t *testing.T) (*Store, *kvstore.MemoryStore, *fakeClock) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	clock := newFakeClock()
	s := New(kv, testLogger())
	s.now = clock.now
	return s, kv, clock
}

func TestSetAuthDataPersistsAndLoads(t *testing.T) {
	s, kv, clock := newTestStore(t)

	s.SetAuthData("abc|123", testUser())

	v, ok := kv.Get(KeyToken)
	require.True(t, ok)
	require.Equal(t, "abc|123", v)
	_, ok = kv.Get(KeyUser)
	require.True(t, ok)
	activity, ok := kv.Get(KeyLastActivity)
	require.True(t, ok)
	require.Equal(t, strconv.FormatInt(clock.t.UnixMilli(), 10), activity)

	// A fresh store over the same durable data reconstructs the session.
	s2 := New(kv, testLogger())
	s2.now = clock.now
	s2.Init()

	st := s2.Snapshot()
	require.True(t, st.IsAuthenticated)
	require.Equal(t, "abc|123", st.Token)
	require.Equal(t, int64(7), st.User.ID)
	require.Equal(t, "jdoe", st.User.Username)
}

func TestInitRunsOnce(t *testing.T) {
	s, kv, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	s2 := New(kv, testLogger())
	s2.now = clock.now
	s2.Init()
	require.True(t, s2.IsSessionValid())

	// A second Init after the durable data vanished must not re-load.
	kv.Clear()
	s2.Init()
	require.Equal(t, "abc|123", s2.Snapshot().Token)
}

func TestLoadClearsOnMissingFields(t *testing.T) {
	for _, missing := range []string{KeyToken, KeyUser, KeyLastActivity} {
		s, kv, _ := newTestStore(t)
		s.SetAuthData("abc|123", testUser())

		kv.Remove(missing)
		s.Load()

		st := s.Snapshot()
		require.False(t, st.IsAuthenticated, "missing %s must clear the session", missing)
		require.Empty(t, st.Token)
		// A partial session is wiped from the durable store too.
		_, ok := kv.Get(KeyToken)
		require.False(t, ok)
	}
}

func TestLoadClearsOnMalformedActivity(t *testing.T) {
	s, kv, _ := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	kv.Set(KeyLastActivity, "not-a-number")
	s.Load()

	require.False(t, s.Snapshot().IsAuthenticated)
	_, ok := kv.Get(KeyToken)
	require.False(t, ok)
}

func TestLoadClearsOnMalformedUser(t *testing.T) {
	for _, raw := range []string{"{invalid", "null"} {
		s, kv, _ := newTestStore(t)
		s.SetAuthData("abc|123", testUser())

		kv.Set(KeyUser, raw)
		s.Load()

		require.False(t, s.Snapshot().IsAuthenticated, "user %q must clear the session", raw)
	}
}

func TestLoadClearsStaleSession(t *testing.T) {
	s, kv, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	clock.advance(time.Hour + time.Minute)
	s.Load()

	require.False(t, s.Snapshot().IsAuthenticated)
	_, ok := kv.Get(KeyToken)
	require.False(t, ok)
}

func TestValidTokenExpiryInvariant(t *testing.T) {
	s, kv, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	// Just inside the window the token is still served.
	clock.advance(time.Hour - time.Second)
	require.Equal(t, "abc|123", s.ValidToken())

	// Past the inactivity window: no read may ever return the token, and
	// the durable keys go with it.
	clock.advance(2 * time.Second)
	require.Empty(t, s.ValidToken())
	require.False(t, s.IsSessionValid())
	require.False(t, s.Snapshot().IsAuthenticated)

	for _, key := range []string{KeyToken, KeyUser, KeyLastActivity} {
		_, ok := kv.Get(key)
		require.False(t, ok, "%s must be removed after expiry", key)
	}
}

func TestActivityExtendsSession(t *testing.T) {
	s, _, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	clock.advance(50 * time.Minute)
	s.UpdateLastActivity()
	clock.advance(50 * time.Minute)

	require.Equal(t, "abc|123", s.ValidToken())
}

func TestSnapshotHonorsExpiryWithoutClearing(t *testing.T) {
	s, kv, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	clock.advance(2 * time.Hour)

	st := s.Snapshot()
	require.False(t, st.IsAuthenticated)

	// Snapshot is read-only: the durable keys are only removed by a
	// clearing read such as ValidToken.
	_, ok := kv.Get(KeyToken)
	require.True(t, ok)

	require.Empty(t, s.ValidToken())
	_, ok = kv.Get(KeyToken)
	require.False(t, ok)
}

func TestClearIsIdempotent(t *testing.T) {
	s, kv, _ := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	s.Clear()
	first := s.Snapshot()
	s.Clear()
	second := s.Snapshot()

	require.Equal(t, first, second)
	require.False(t, second.IsAuthenticated)
	require.Nil(t, second.User)
	_, ok := kv.Get(KeyToken)
	require.False(t, ok)
}

func TestClearLeavesRefreshTokenSlot(t *testing.T) {
	s, kv, _ := newTestStore(t)
	kv.Set(KeyRefreshToken, "keepme")
	s.SetAuthData("abc|123", testUser())

	s.Clear()

	v, ok := kv.Get(KeyRefreshToken)
	require.True(t, ok)
	require.Equal(t, "keepme", v)
}

func TestShouldRefreshToken(t *testing.T) {
	s, _, clock := newTestStore(t)
	require.False(t, s.ShouldRefreshToken(), "no session, nothing to refresh")

	s.SetAuthData("abc|123", testUser())
	require.False(t, s.ShouldRefreshToken())

	clock.advance(40 * time.Minute)
	require.False(t, s.ShouldRefreshToken())

	clock.advance(10 * time.Minute) // 10m remaining, under the 15m threshold
	require.True(t, s.ShouldRefreshToken())
}

func TestUpdateUserRequiresExistingUser(t *testing.T) {
	s, kv, _ := newTestStore(t)

	name := "Ghost"
	s.UpdateUser(UserPatch{Name: &name})
	require.Nil(t, s.Snapshot().User)
	_, ok := kv.Get(KeyUser)
	require.False(t, ok)

	s.SetAuthData("abc|123", testUser())
	email := "new@example.com"
	s.UpdateUser(UserPatch{Email: &email})

	st := s.Snapshot()
	require.Equal(t, "new@example.com", st.User.Email)
	require.Equal(t, "jdoe", st.User.Username, "unpatched fields keep their values")

	// The merged record was re-persisted.
	raw, ok := kv.Get(KeyUser)
	require.True(t, ok)
	require.Contains(t, raw, "new@example.com")
}

func TestSetLoading(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.SetLoading(true)
	require.True(t, s.Snapshot().IsLoading)

	// Clearing the session also drops the transient flag.
	s.Clear()
	require.False(t, s.Snapshot().IsLoading)
}

func TestHandleChangeReconcilesFields(t *testing.T) {
	s, _, clock := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	// Token rotated in another context.
	s.handleChange(kvstore.Change{Key: KeyToken, New: "def|456", NewOK: true})
	st := s.Snapshot()
	require.Equal(t, "def|456", st.Token)
	require.True(t, st.IsAuthenticated)

	// Activity refreshed in another context.
	future := clock.t.Add(30 * time.Minute)
	s.handleChange(kvstore.Change{
		Key:   KeyLastActivity,
		New:   strconv.FormatInt(future.UnixMilli(), 10),
		NewOK: true,
	})
	require.Equal(t, future.UnixMilli(), s.Snapshot().LastActivity.UnixMilli())

	// Logout in another context.
	s.handleChange(kvstore.Change{Key: KeyToken})
	st = s.Snapshot()
	require.Empty(t, st.Token)
	require.False(t, st.IsAuthenticated)
}

func TestHandleChangeDropsMalformedValues(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.SetAuthData("abc|123", testUser())

	s.handleChange(kvstore.Change{Key: KeyUser, New: "{invalid", NewOK: true})
	require.Equal(t, "jdoe", s.Snapshot().User.Username, "malformed user update keeps previous value")

	s.handleChange(kvstore.Change{Key: KeyLastActivity, New: "soon", NewOK: true})
	require.True(t, s.Snapshot().IsAuthenticated, "malformed activity update keeps previous value")

	s.handleChange(kvstore.Change{Key: "unrelated_key", New: "x", NewOK: true})
	require.True(t, s.Snapshot().IsAuthenticated)
}

func TestWatchChangesWithoutWatcherStore(t *testing.T) {
	s, _, _ := newTestStore(t)

	// MemoryStore cannot report changes; unsubscribe must still be callable.
	unwatch := s.WatchChanges()
	unwatch()
	unwatch()
}
