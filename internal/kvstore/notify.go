package kvstore

import (
	"sync"
)

// externalOrigin marks changes detected by polling the underlying file, as
// opposed to writes made through a Store handle registered with the hub.
const externalOrigin = -1

// Change describes a single key mutation in a storage area.
type Change struct {
	Key string
	New string
	// NewOK is false when the key was removed.
	NewOK bool
	Old   string
	OldOK bool
}

// WatchFunc receives change events. It is invoked from a dedicated goroutine
// per subscription; implementations must not block for long.
type WatchFunc func(Change)

type subscriber struct {
	origin int
	ch     chan Change
	stop   chan struct{}
}

// Hub fans out change events between Store handles that share one storage
// area within a process. Delivery is fire-and-forget: events for a slow
// subscriber are dropped rather than queued without bound, matching the
// best-effort semantics of a cross-context broadcast.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]*subscriber
	nextSub int
	nextOri int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// origin hands out a unique origin identifier for a Store handle.
func (h *Hub) origin() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextOri++
	return h.nextOri
}

// subscribe registers fn to receive events published from any origin other
// than the given one. Each subscription gets its own delivery queue and
// consumer goroutine.
func (h *Hub) subscribe(origin int, fn WatchFunc) int {
	sub := &subscriber{
		origin: origin,
		ch:     make(chan Change, 16),
		stop:   make(chan struct{}),
	}

	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case c := <-sub.ch:
				fn(c)
			case <-sub.stop:
				return
			}
		}
	}()

	return id
}

// unsubscribe detaches one subscription. Safe to call with an id that was
// already removed.
func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	close(sub.stop)
	delete(h.subs, id)
}

// publish delivers c to every subscriber whose origin differs from the
// publishing one. A change never echoes back to the handle that made it.
func (h *Hub) publish(origin int, c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.origin == origin {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			// Subscriber queue full; drop the event.
		}
	}
}
