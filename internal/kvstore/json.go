package kvstore

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// GetJSON reads key from s and unmarshals it into T. Returns the zero value
// and false on a missing key or malformed JSON; it never propagates an error.
func GetJSON[T any](s Store, key string, log zerolog.Logger) (T, bool) {
	var v T
	raw, ok := s.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Malformed JSON in durable store")
		return v, false
	}
	return v, true
}

// SetJSON marshals v and stores it under key. Returns false on marshal or
// storage failure.
func SetJSON(s Store, key string, v any, log zerolog.Logger) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to encode JSON for durable store")
		return false
	}
	return s.Set(key, string(data))
}
