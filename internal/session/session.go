// Package session owns the client-side authentication state: the canonical
// in-memory session, its durable persistence, cross-context reconciliation,
// inactivity expiry, and migration from the legacy credential layout.
package session

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dayleaf-dev/dayleaf/internal/kvstore"
)

// Durable storage keys. Stable across versions; also used as cookie names by
// the auth bridge.
const (
	KeyToken        = "auth_token"
	KeyUser         = "auth_user"
	KeyRefreshToken = "auth_refresh_token" // reserved, unused
	KeyLastActivity = "auth_last_activity"
)

const (
	// DefaultTimeout is the inactivity window after which a session expires.
	DefaultTimeout = time.Hour
	// DefaultRefreshThreshold is the remaining-time mark at which a token
	// refresh becomes advisable.
	DefaultRefreshThreshold = 15 * time.Minute
)

// State is a point-in-time view of the session.
type State struct {
	Token        string
	User         *User
	LastActivity time.Time // zero means absent
	// IsAuthenticated is derived: token, user and activity present, and
	// the session not expired.
	IsAuthenticated bool
	IsLoading       bool
}

// Store holds the canonical in-process authentication state. All mutation
// goes through its methods. Construct one per client context and pass it by
// reference; there is no ambient global instance.
type Store struct {
	kv  kvstore.Store
	log zerolog.Logger
	now func() time.Time

	timeout          time.Duration
	refreshThreshold time.Duration

	mu          sync.Mutex
	state       State
	initialized bool
}

// New creates a session store over the given durable store.
func New(kv kvstore.Store, log zerolog.Logger) *Store {
	return &Store{
		kv:               kv,
		log:              log,
		now:              time.Now,
		timeout:          DefaultTimeout,
		refreshThreshold: DefaultRefreshThreshold,
	}
}

// Init performs the one-time startup load. It is a no-op when the durable
// store is unavailable in this context, and on every call after the first.
func (s *Store) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.initialized = true

	if !s.kv.Available() {
		return
	}
	s.loadLocked()
}

// Load reconstructs the session from the durable store. Any ambiguity about
// session validity (missing fields, malformed values, stale activity)
// results in a cleared state, never in silent re-authentication.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
}

func (s *Store) loadLocked() {
	token, tokenOK := s.kv.Get(KeyToken)
	userRaw, userOK := s.kv.Get(KeyUser)
	activityRaw, activityOK := s.kv.Get(KeyLastActivity)

	if !tokenOK || !userOK || !activityOK {
		s.clearLocked()
		return
	}

	activityMillis, err := strconv.ParseInt(activityRaw, 10, 64)
	if err != nil {
		s.log.Warn().Err(err).Msg("Malformed last-activity value, clearing session")
		s.clearLocked()
		return
	}

	last := time.UnixMilli(activityMillis)
	if s.now().Sub(last) > s.timeout {
		s.clearLocked()
		return
	}

	user, err := decodeUser(userRaw)
	if err != nil {
		s.log.Warn().Err(err).Msg("Malformed persisted user record, clearing session")
		s.clearLocked()
		return
	}

	s.state.Token = token
	s.state.User = user
	s.state.LastActivity = last
	s.state.IsAuthenticated = true
}

// SetAuthData installs a fresh authenticated session and persists it. The
// refresh-token slot is deliberately left untouched.
func (s *Store) SetAuthData(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.Token = token
	s.state.User = user.clone()
	s.state.LastActivity = now
	s.state.IsAuthenticated = true

	s.kv.Set(KeyToken, token)
	kvstore.SetJSON(s.kv, KeyUser, s.state.User, s.log)
	s.kv.Set(KeyLastActivity, strconv.FormatInt(now.UnixMilli(), 10))
}

// UpdateUser shallow-merges patch into the current user and re-persists it.
// No-op when no user is set: this method never fabricates a user record.
func (s *Store) UpdateUser(patch UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return
	}
	s.state.User.apply(patch)
	kvstore.SetJSON(s.kv, KeyUser, s.state.User, s.log)
}

// UpdateLastActivity records user interaction now and persists it.
func (s *Store) UpdateLastActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.LastActivity = now
	s.kv.Set(KeyLastActivity, strconv.FormatInt(now.UnixMilli(), 10))
}

// Clear resets the session to unauthenticated and removes the persisted
// credential keys. Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.state.Token = ""
	s.state.User = nil
	s.state.LastActivity = time.Time{}
	s.state.IsAuthenticated = false
	s.state.IsLoading = false

	s.kv.Remove(KeyToken)
	s.kv.Remove(KeyUser)
	s.kv.Remove(KeyLastActivity)
}

// ValidToken returns the current token only while the session is unexpired.
// An expired session is cleared on the spot and "" is returned. This is the
// only sanctioned way for other components to obtain a token for outbound
// requests.
func (s *Store) ValidToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Token == "" {
		return ""
	}
	if s.expiredLocked() {
		s.clearLocked()
		return ""
	}
	return s.state.Token
}

// IsSessionValid reports whether the session is authenticated, unexpired and
// carries a token.
func (s *Store) IsSessionValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated && !s.expiredLocked() && s.state.Token != ""
}

// IsTokenExpired recomputes expiry from the last-activity timestamp on every
// call; the result is never cached.
func (s *Store) IsTokenExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredLocked()
}

// ShouldRefreshToken reports whether the remaining session time is at or
// below the refresh threshold.
func (s *Store) ShouldRefreshToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Token == "" || s.state.LastActivity.IsZero() {
		return false
	}
	remaining := s.timeout - s.now().Sub(s.state.LastActivity)
	return remaining <= s.refreshThreshold
}

// SetLoading toggles the transient in-flight-mutation flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

// Snapshot returns a copy of the current state. IsAuthenticated in the copy
// honors expiry even if no clearing read has run yet.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.User = s.state.User.clone()
	if st.IsAuthenticated && s.expiredLocked() {
		st.IsAuthenticated = false
	}
	return st
}

func (s *Store) expiredLocked() bool {
	if s.state.LastActivity.IsZero() {
		return true
	}
	return s.now().Sub(s.state.LastActivity) > s.timeout
}

// WatchChanges subscribes to cross-context storage changes and reconciles
// them into the in-memory state. Returns a no-op unsubscribe when the
// durable store cannot report changes.
func (s *Store) WatchChanges() func() {
	watcher, ok := s.kv.(kvstore.Watcher)
	if !ok {
		return func() {}
	}
	return watcher.Watch(s.handleChange)
}

// handleChange applies one externally-observed key change. A field is only
// updated when the new value differs from the current in-memory one, which
// keeps changes that originated in this context from looping. Malformed
// values are logged and dropped, retaining the previous field value.
func (s *Store) handleChange(c kvstore.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Key {
	case KeyToken:
		newToken := ""
		if c.NewOK {
			newToken = c.New
		}
		if newToken != s.state.Token {
			s.state.Token = newToken
		}

	case KeyUser:
		if !c.NewOK {
			s.state.User = nil
			break
		}
		user, err := decodeUser(c.New)
		if err != nil {
			s.log.Warn().Err(err).Msg("Dropping malformed cross-context user update")
			break
		}
		if s.state.User == nil || *s.state.User != *user {
			s.state.User = user
		}

	case KeyLastActivity:
		if !c.NewOK {
			s.state.LastActivity = time.Time{}
			break
		}
		millis, err := strconv.ParseInt(c.New, 10, 64)
		if err != nil {
			s.log.Warn().Err(err).Msg("Dropping malformed cross-context activity update")
			break
		}
		last := time.UnixMilli(millis)
		if !last.Equal(s.state.LastActivity) {
			s.state.LastActivity = last
		}

	default:
		return
	}

	s.state.IsAuthenticated = s.state.Token != "" &&
		s.state.User != nil &&
		!s.state.LastActivity.IsZero() &&
		!s.expiredLocked()
}

// decodeUser parses a persisted user record, rejecting JSON null and records
// without an id.
func decodeUser(raw string) (*User, error) {
	var user *User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errNullUser
	}
	return user, nil
}

var errNullUser = errors.New("user record is null")
