package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCheckInterval is how often the lifecycle controller re-evaluates
// expiry. The periodic check is best-effort; ValidToken re-validates on
// every read regardless.
const DefaultCheckInterval = time.Minute

// Lifecycle expires sessions after inactivity and records user interaction.
// It runs only in client contexts. Start spawns one goroutine; Stop detaches
// everything and is safe to call more than once.
type Lifecycle struct {
	store     *Store
	onExpired func()
	log       zerolog.Logger
	interval  time.Duration

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewLifecycle creates a controller over store. onExpired is invoked after a
// periodic check force-clears an expired session; it is a notification
// point, no navigation or redirect is performed here. onExpired may be nil.
func NewLifecycle(store *Store, onExpired func(), log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		store:     store,
		onExpired: onExpired,
		log:       log,
		interval:  DefaultCheckInterval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the periodic expiry check.
func (l *Lifecycle) Start() {
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

func (l *Lifecycle) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.check()
		case <-l.stop:
			return
		}
	}
}

func (l *Lifecycle) check() {
	st := l.store.Snapshot()
	if st.Token == "" {
		return
	}
	if l.store.IsTokenExpired() {
		l.store.Clear()
		l.log.Info().Msg("Session expired due to inactivity")
		if l.onExpired != nil {
			l.onExpired()
		}
	}
}

// Touch records a user interaction. Only sessions that are currently
// authenticated get their activity refreshed.
func (l *Lifecycle) Touch() {
	if l.store.IsSessionValid() {
		l.store.UpdateLastActivity()
	}
}

// Stop detaches the periodic check. Idempotent; returns once the check
// goroutine has exited.
func (l *Lifecycle) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	if l.started {
		<-l.done
	}
}
