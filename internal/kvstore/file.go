package kvstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPollInterval = time.Second

// FileStore is a Store backed by a single JSON file, typically under the
// user config directory. It keeps an in-memory mirror that is updated
// opportunistically on successful reads and writes; the mirror is not
// authoritative — Get always re-reads the file.
//
// Handles that share a Hub see each other's writes immediately. Writes made
// by other processes are picked up by a polling reconciler that diffs the
// file against the mirror and emits per-key change events.
type FileStore struct {
	path   string
	hub    *Hub
	log    zerolog.Logger
	origin int

	mu       sync.Mutex
	mirror   map[string]string
	watchers int
	pollStop chan struct{}

	// PollInterval controls how often external writes are reconciled.
	// Only read when the first watcher registers.
	PollInterval time.Duration
}

// NewFileStore creates a file-backed store at path. Handles that should
// observe each other's writes must share the same hub; passing nil hub gives
// the store a private one.
func NewFileStore(path string, hub *Hub, log zerolog.Logger) *FileStore {
	if hub == nil {
		hub = NewHub()
	}
	return &FileStore{
		path:         path,
		hub:          hub,
		log:          log,
		origin:       hub.origin(),
		mirror:       make(map[string]string),
		PollInterval: defaultPollInterval,
	}
}

// Available probes whether the backing file can be created and opened for
// writing in the current context.
func (s *FileStore) Available() bool {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Durable store unavailable")
		return false
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Durable store unavailable")
		return false
	}
	f.Close()
	return true
}

// Get re-reads the underlying file and returns the value for key. The mirror
// is updated as a side effect.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readAll()
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to read durable store")
		return "", false
	}

	v, ok := m[key]
	if ok {
		s.mirror[key] = v
	} else {
		delete(s.mirror, key)
	}
	return v, ok
}

// Set writes key=value and publishes the change to other handles on the same
// hub. Returns false (after logging) if the file could not be written.
func (s *FileStore) Set(key, value string) bool {
	s.mu.Lock()
	m, err := s.readAll()
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to read durable store")
		return false
	}

	old, oldOK := m[key]
	m[key] = value
	if err := s.writeAll(m); err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to write durable store")
		return false
	}
	s.mirror[key] = value
	s.mu.Unlock()

	if !oldOK || old != value {
		s.hub.publish(s.origin, Change{Key: key, New: value, NewOK: true, Old: old, OldOK: oldOK})
	}
	return true
}

// Remove deletes key. Removing an absent key succeeds without an event.
func (s *FileStore) Remove(key string) bool {
	s.mu.Lock()
	m, err := s.readAll()
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to read durable store")
		return false
	}

	old, oldOK := m[key]
	if !oldOK {
		s.mu.Unlock()
		return true
	}

	delete(m, key)
	if err := s.writeAll(m); err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to write durable store")
		return false
	}
	delete(s.mirror, key)
	s.mu.Unlock()

	s.hub.publish(s.origin, Change{Key: key, Old: old, OldOK: true})
	return true
}

// Clear removes every key in the storage area.
func (s *FileStore) Clear() bool {
	s.mu.Lock()
	m, err := s.readAll()
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("Failed to read durable store")
		return false
	}

	if err := s.writeAll(map[string]string{}); err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("Failed to clear durable store")
		return false
	}
	s.mirror = make(map[string]string)
	s.mu.Unlock()

	for k, v := range m {
		s.hub.publish(s.origin, Change{Key: k, Old: v, OldOK: true})
	}
	return true
}

// Watch registers fn for changes made by other handles or other processes.
// The returned unsubscribe function fully detaches this one listener and is
// safe to call more than once.
func (s *FileStore) Watch(fn WatchFunc) func() {
	if !s.Available() {
		return func() {}
	}

	wrapped := func(c Change) {
		s.applyExternal(c)
		fn(c)
	}
	id := s.hub.subscribe(s.origin, wrapped)

	s.mu.Lock()
	s.watchers++
	if s.watchers == 1 {
		s.pollStop = make(chan struct{})
		go s.pollLoop(s.pollStop)
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.hub.unsubscribe(id)
			s.mu.Lock()
			s.watchers--
			if s.watchers == 0 && s.pollStop != nil {
				close(s.pollStop)
				s.pollStop = nil
			}
			s.mu.Unlock()
		})
	}
}

// applyExternal brings the mirror in line with a change that originated
// outside this handle, before the change is handed to the listener.
func (s *FileStore) applyExternal(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.NewOK {
		s.mirror[c.Key] = c.New
	} else {
		delete(s.mirror, c.Key)
	}
}

// pollLoop reconciles external (out-of-process) writes into change events.
func (s *FileStore) pollLoop(stop chan struct{}) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.poll()
		case <-stop:
			return
		}
	}
}

func (s *FileStore) poll() {
	s.mu.Lock()
	m, err := s.readAll()
	if err != nil {
		s.mu.Unlock()
		return
	}

	var changes []Change
	for k, v := range m {
		if mv, ok := s.mirror[k]; !ok || mv != v {
			changes = append(changes, Change{Key: k, New: v, NewOK: true, Old: mv, OldOK: ok})
			s.mirror[k] = v
		}
	}
	for k, mv := range s.mirror {
		if _, ok := m[k]; !ok {
			changes = append(changes, Change{Key: k, Old: mv, OldOK: true})
			delete(s.mirror, k)
		}
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.hub.publish(externalOrigin, c)
	}
}

func (s *FileStore) readAll() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *FileStore) writeAll(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
