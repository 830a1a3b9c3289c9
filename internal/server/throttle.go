package server

import (
	"sync"
	"time"
)

// loginThrottle is a fixed-window per-key counter used to rate limit
// credential guessing. Windows are pruned opportunistically on each check.
type loginThrottle struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string]*throttleWindow
}

type throttleWindow struct {
	count int
	start time.Time
}

func newLoginThrottle(limit int, window time.Duration) *loginThrottle {
	return &loginThrottle{
		limit:  limit,
		window: window,
		hits:   make(map[string]*throttleWindow),
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit for the current window.
func (t *loginThrottle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, w := range t.hits {
		if now.Sub(w.start) > t.window {
			delete(t.hits, k)
		}
	}

	w, ok := t.hits[key]
	if !ok {
		t.hits[key] = &throttleWindow{count: 1, start: now}
		return true
	}

	w.count++
	return w.count <= t.limit
}
