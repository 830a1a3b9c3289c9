package session

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// CookieMaxAge is the lifetime of mirrored auth cookies, in seconds.
const CookieMaxAge = 7 * 24 * 60 * 60

// Platform describes the capabilities of the execution context a Bridge runs
// in. Injecting it at construction replaces scattered "which context are we
// in?" checks.
type Platform interface {
	HasDurableStore() bool
	HasCookies() bool
}

type platformCaps struct {
	durable bool
	cookies bool
}

func (p platformCaps) HasDurableStore() bool { return p.durable }
func (p platformCaps) HasCookies() bool      { return p.cookies }

// ClientContext is a context with a durable store and no HTTP cookies: a
// running CLI or SDK consumer.
func ClientContext() Platform { return platformCaps{durable: true} }

// ServerContext is a request-handling context with cookies but no access to
// any client durable store.
func ServerContext() Platform { return platformCaps{cookies: true} }

// CookieAccess abstracts reading and writing the auth cookie mirror.
type CookieAccess interface {
	GetCookie(name string) (string, bool)
	// SetCookie writes a cookie with the given max age in seconds,
	// SameSite=Lax, and the secure flag as given.
	SetCookie(name, value string, maxAge int, secure bool)
	DeleteCookie(name string)
}

// Bridge reconciles the session store with the cookie mirror so that
// server-handled requests can see authentication state without access to the
// client durable store, while client contexts see live updates.
type Bridge struct {
	platform   Platform
	store      *Store // nil in contexts without a durable store
	cookies    CookieAccess
	production bool
	log        zerolog.Logger
}

// NewBridge creates a bridge. store may be nil when the platform has no
// durable store; cookies may be nil when the platform has no cookie channel.
func NewBridge(platform Platform, store *Store, cookies CookieAccess, production bool, log zerolog.Logger) *Bridge {
	return &Bridge{
		platform:   platform,
		store:      store,
		cookies:    cookies,
		production: production,
		log:        log,
	}
}

// AuthSnapshot returns the session state visible in this context. In a
// client context that is the live store state; in a server context it is a
// best-effort reconstruction from cookies, authenticated iff both token and
// user are present (expiry is activity-based and only meaningful client
// side).
func (b *Bridge) AuthSnapshot() State {
	if b.platform.HasDurableStore() && b.store != nil {
		return b.store.Snapshot()
	}

	var st State
	if b.cookies == nil {
		return st
	}

	token, tokenOK := b.cookies.GetCookie(KeyToken)
	userRaw, userOK := b.cookies.GetCookie(KeyUser)
	if tokenOK {
		st.Token = token
	}
	if userOK {
		user, err := decodeUser(userRaw)
		if err != nil {
			b.log.Warn().Err(err).Msg("Malformed user cookie")
		} else {
			st.User = user
		}
	}
	st.IsAuthenticated = st.Token != "" && st.User != nil
	return st
}

// SetAuthSnapshot writes the cookie mirror in every context, and also
// updates the session store when one is present. The dual write lets
// server-handled requests see authentication state before any client code
// runs, while client contexts stay live without a reload.
func (b *Bridge) SetAuthSnapshot(token string, user *User) {
	if b.cookies != nil {
		b.cookies.SetCookie(KeyToken, token, CookieMaxAge, b.production)
		if data, ok := encodeUser(user); ok {
			b.cookies.SetCookie(KeyUser, data, CookieMaxAge, b.production)
		} else {
			b.log.Warn().Msg("Failed to encode user for cookie mirror")
		}
	}

	if b.platform.HasDurableStore() && b.store != nil {
		b.store.SetAuthData(token, user)
	}
}

// ClearAuthSnapshot mirrors a logout to both channels.
func (b *Bridge) ClearAuthSnapshot() {
	if b.cookies != nil {
		b.cookies.DeleteCookie(KeyToken)
		b.cookies.DeleteCookie(KeyUser)
	}
	if b.platform.HasDurableStore() && b.store != nil {
		b.store.Clear()
	}
}

// RequestToken returns the bearer token to attach to an outbound request:
// the store's validity-checked token, falling back to the cookie value when
// the store has none. The fallback covers server-handled requests.
func (b *Bridge) RequestToken() string {
	if b.platform.HasDurableStore() && b.store != nil {
		if t := b.store.ValidToken(); t != "" {
			return t
		}
	}
	if b.cookies != nil {
		if t, ok := b.cookies.GetCookie(KeyToken); ok {
			return t
		}
	}
	return ""
}

func encodeUser(user *User) (string, bool) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// MemoryCookies is an in-process CookieAccess, used by tests and by client
// contexts that have no real cookie channel.
type MemoryCookies struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryCookies creates an empty cookie map.
func NewMemoryCookies() *MemoryCookies {
	return &MemoryCookies{m: make(map[string]string)}
}

func (c *MemoryCookies) GetCookie(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[name]
	return v, ok
}

func (c *MemoryCookies) SetCookie(name, value string, maxAge int, secure bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[name] = value
}

func (c *MemoryCookies) DeleteCookie(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, name)
}
