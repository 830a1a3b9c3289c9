package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBridgeServerContextReadsCookiesOnly(t *testing.T) {
	cookies := NewMemoryCookies()
	b := NewBridge(ServerContext(), nil, cookies, false, testLogger())

	// No cookies: anonymous.
	st := b.AuthSnapshot()
	require.False(t, st.IsAuthenticated)

	cookies.SetCookie(KeyToken, "abc|123", CookieMaxAge, false)
	st = b.AuthSnapshot()
	require.False(t, st.IsAuthenticated, "token without user is not authenticated")

	cookies.SetCookie(KeyUser, `{"id":7,"username":"jdoe"}`, CookieMaxAge, false)
	st = b.AuthSnapshot()
	require.True(t, st.IsAuthenticated)
	require.Equal(t, "abc|123", st.Token)
	require.Equal(t, int64(7), st.User.ID)
}

func TestBridgeServerContextMalformedUserCookie(t *testing.T) {
	cookies := NewMemoryCookies()
	cookies.SetCookie(KeyToken, "abc|123", CookieMaxAge, false)
	cookies.SetCookie(KeyUser, "{invalid", CookieMaxAge, false)

	b := NewBridge(ServerContext(), nil, cookies, false, testLogger())
	st := b.AuthSnapshot()
	require.Nil(t, st.User)
	require.False(t, st.IsAuthenticated)
}

func TestBridgeClientContextDualWrite(t *testing.T) {
	s, kv, _ := newTestStore(t)
	cookies := NewMemoryCookies()
	b := NewBridge(ClientContext(), s, cookies, false, testLogger())

	b.SetAuthSnapshot("abc|123", testUser())

	// Both channels carry the credentials.
	v, ok := cookies.GetCookie(KeyToken)
	require.True(t, ok)
	require.Equal(t, "abc|123", v)
	v, ok = kv.Get(KeyToken)
	require.True(t, ok)
	require.Equal(t, "abc|123", v)
	require.True(t, s.IsSessionValid())

	b.ClearAuthSnapshot()

	_, ok = cookies.GetCookie(KeyToken)
	require.False(t, ok)
	_, ok = kv.Get(KeyToken)
	require.False(t, ok)
	require.False(t, s.IsSessionValid())
}

func TestBridgeRequestTokenPrefersStore(t *testing.T) {
	s, _, clock := newTestStore(t)
	cookies := NewMemoryCookies()
	cookies.SetCookie(KeyToken, "stale|cookie", CookieMaxAge, false)

	b := NewBridge(ClientContext(), s, cookies, false, testLogger())

	s.SetAuthData("abc|123", testUser())
	require.Equal(t, "abc|123", b.RequestToken())

	// Once the store's token expires, the cookie is the fallback. Server
	// validation is the backstop for a stale cookie value.
	clock.advance(2 * time.Hour)
	require.Equal(t, "stale|cookie", b.RequestToken())
}

func TestBridgeRequestTokenServerContext(t *testing.T) {
	cookies := NewMemoryCookies()
	b := NewBridge(ServerContext(), nil, cookies, false, testLogger())

	require.Empty(t, b.RequestToken())

	cookies.SetCookie(KeyToken, "abc|123", CookieMaxAge, false)
	require.Equal(t, "abc|123", b.RequestToken())
}
