// Package kvstore provides the durable key-value storage layer used by the
// client session state. Backends never propagate storage errors to callers:
// failed operations log a warning and report false/absent instead.
package kvstore

// Store is the durable key-value contract. Implementations must contain all
// storage failures (missing backend, permissions, quota) and surface them as
// boolean/absent results only.
type Store interface {
	// Available reports whether the durable store is reachable in the
	// current execution context.
	Available() bool
	Get(key string) (string, bool)
	Set(key, value string) bool
	Remove(key string) bool
	Clear() bool
}

// Watcher is implemented by stores that can report changes made by other
// contexts sharing the same storage area.
type Watcher interface {
	// Watch registers fn for change events and returns an unsubscribe
	// function. Unsubscribing twice is a safe no-op. If the store is not
	// available, Watch returns a no-op unsubscribe.
	Watch(fn WatchFunc) (unsubscribe func())
}
