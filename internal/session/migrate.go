package session

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dayleaf-dev/dayleaf/internal/kvstore"
)

// Legacy storage keys from the pre-store credential layout.
const (
	legacyKeyToken    = "old_auth_token"
	legacyKeyUser     = "old_auth_user"
	legacyKeyActivity = "old_auth_last_activity"
)

// deprecatedKeys are deleted after a verified migration. The four active
// storage keys are deliberately not in this list.
var deprecatedKeys = []string{
	legacyKeyToken,
	legacyKeyUser,
	legacyKeyActivity,
	"deprecated_user_data",
}

// MigrationState tracks the one-time legacy credential import.
type MigrationState int

const (
	MigrationNotStarted MigrationState = iota
	MigrationMigrated
	MigrationVerified
	MigrationCleanedUp
	// MigrationVerificationFailed is terminal; legacy data is retained as
	// a recovery fallback.
	MigrationVerificationFailed
)

func (s MigrationState) String() string {
	switch s {
	case MigrationNotStarted:
		return "not_started"
	case MigrationMigrated:
		return "migrated"
	case MigrationVerified:
		return "verified"
	case MigrationCleanedUp:
		return "cleaned_up"
	case MigrationVerificationFailed:
		return "verification_failed"
	default:
		return "unknown"
	}
}

// Migrator imports legacy-format persisted credentials into the session
// store, verifies the import, and removes the deprecated keys. It runs at
// most once per process and is safely re-entrant: calling Run again when no
// migration is needed is a cheap no-op.
type Migrator struct {
	kv    kvstore.Store
	store *Store
	log   zerolog.Logger

	// settle is the pause between migrating and verifying, giving
	// downstream consumers of the store time to observe the import.
	settle time.Duration

	state MigrationState
	ran   bool
}

// NewMigrator creates a migrator over the given durable store and session
// store.
func NewMigrator(kv kvstore.Store, store *Store, log zerolog.Logger) *Migrator {
	return &Migrator{
		kv:     kv,
		store:  store,
		log:    log,
		settle: 100 * time.Millisecond,
		state:  MigrationNotStarted,
	}
}

// State returns the migrator's current state.
func (m *Migrator) State() MigrationState {
	return m.state
}

// NeedsMigration reports whether a legacy token exists while the session
// store has none. This is the sole gate: migration never runs when the new
// store already has data, even if legacy data is also present.
func (m *Migrator) NeedsMigration() bool {
	if _, ok := m.kv.Get(legacyKeyToken); !ok {
		return false
	}
	return m.store.Snapshot().Token == ""
}

// Run performs the migration if needed and returns the resulting state.
func (m *Migrator) Run() MigrationState {
	if m.ran || !m.NeedsMigration() {
		return m.state
	}
	m.ran = true

	if !m.migrate() {
		return m.state
	}

	time.Sleep(m.settle)

	if !m.verify() {
		m.state = MigrationVerificationFailed
		m.log.Warn().Msg("Legacy credential migration failed verification, keeping legacy data as backup")
		return m.state
	}
	m.state = MigrationVerified

	m.cleanup()
	m.state = MigrationCleanedUp
	m.log.Info().Msg("Legacy credential migration complete")
	return m.state
}

func (m *Migrator) migrate() bool {
	token, ok := m.kv.Get(legacyKeyToken)
	if !ok || token == "" {
		return false
	}

	userRaw, ok := m.kv.Get(legacyKeyUser)
	if !ok {
		m.log.Warn().Msg("Legacy token present without a user record, skipping migration")
		return false
	}
	user, err := decodeUser(userRaw)
	if err != nil || user.ID == 0 {
		m.log.Warn().Err(err).Msg("Malformed legacy user record, skipping migration")
		return false
	}

	m.store.SetAuthData(token, user)

	// The legacy activity value is carried over verbatim, not re-derived,
	// so long as it is numeric.
	if activity, ok := m.kv.Get(legacyKeyActivity); ok {
		if _, err := strconv.ParseInt(activity, 10, 64); err == nil {
			m.kv.Set(KeyLastActivity, activity)
		}
	}

	m.state = MigrationMigrated
	return true
}

// verify is a structural sanity check of the imported state, not a content
// comparison against the legacy data.
func (m *Migrator) verify() bool {
	st := m.store.Snapshot()
	if st.IsAuthenticated {
		if st.Token == "" || st.User == nil || st.User.ID == 0 {
			return false
		}
	}
	return m.kv.Available()
}

func (m *Migrator) cleanup() {
	for _, key := range deprecatedKeys {
		m.kv.Remove(key)
	}
}
