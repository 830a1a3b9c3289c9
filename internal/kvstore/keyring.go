package kvstore

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
)

const probeKey = "dayleaf_probe"

// KeyringStore is a Store backed by the OS keychain/credential manager.
// The keyring API cannot enumerate keys, so Clear only removes keys this
// handle has previously written or read.
type KeyringStore struct {
	service string
	log     zerolog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeyringStore creates a keyring-backed store under the given service
// name.
func NewKeyringStore(service string, log zerolog.Logger) *KeyringStore {
	return &KeyringStore{
		service: service,
		log:     log,
		seen:    make(map[string]struct{}),
	}
}

// Available probes the keyring by writing and deleting a throwaway entry.
func (s *KeyringStore) Available() bool {
	if err := keyring.Set(s.service, probeKey, "1"); err != nil {
		s.log.Warn().Err(err).Msg("Keyring unavailable")
		return false
	}
	if err := keyring.Delete(s.service, probeKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.log.Warn().Err(err).Msg("Keyring probe cleanup failed")
	}
	return true
}

func (s *KeyringStore) Get(key string) (string, bool) {
	v, err := keyring.Get(s.service, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to read keyring")
		}
		return "", false
	}
	s.remember(key)
	return v, true
}

func (s *KeyringStore) Set(key, value string) bool {
	if err := keyring.Set(s.service, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to write keyring")
		return false
	}
	s.remember(key)
	return true
}

func (s *KeyringStore) Remove(key string) bool {
	if err := keyring.Delete(s.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to delete keyring entry")
		return false
	}
	s.mu.Lock()
	delete(s.seen, key)
	s.mu.Unlock()
	return true
}

func (s *KeyringStore) Clear() bool {
	s.mu.Lock()
	keys := make([]string, 0, len(s.seen))
	for k := range s.seen {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	ok := true
	for _, k := range keys {
		if !s.Remove(k) {
			ok = false
		}
	}
	return ok
}

func (s *KeyringStore) remember(key string) {
	s.mu.Lock()
	s.seen[key] = struct{}{}
	s.mu.Unlock()
}
