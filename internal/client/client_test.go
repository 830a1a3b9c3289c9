package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dayleaf-dev/dayleaf/internal/kvstore"
	"github.com/dayleaf-dev/dayleaf/internal/session"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// newTestClient returns a client pointed at handler, with a client-context
// bridge whose session store carries the given token.
func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.New(kvstore.NewMemoryStore(), testLogger())
	if token != "" {
		store.SetAuthData(token, &session.User{ID: 7, Username: "jdoe", Email: "jdoe@example.com"})
	}
	bridge := session.NewBridge(session.ClientContext(), store, nil, false, testLogger())
	return New(srv.URL, bridge, testLogger()), store
}

func TestLoginDecodesAuthResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"), "login is a public endpoint")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"Login successful","token":"abc|4f6ad8de7","user":{"id":7,"username":"jdoe","email":"jdoe@example.com"}}`))
	})

	c, _ := newTestClient(t, handler, "")
	resp, err := c.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "abc|4f6ad8de7", resp.Token)
	require.Equal(t, int64(7), resp.User.ID)
}

// The full login path: API response into the bridge, bridge into the durable
// store, durable store serving the token back for subsequent requests.
func TestLoginScenarioEndToEnd(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"token":"abc|123f00dd00","user":{"id":7,"name":"Jane Doe","username":"jdoe","email":"jdoe@example.com"}}`))
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	kv := kvstore.NewMemoryStore()
	store := session.New(kv, testLogger())
	store.Init()
	bridge := session.NewBridge(session.ClientContext(), store, nil, false, testLogger())
	c := New(srv.URL, bridge, testLogger())

	resp, err := c.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "Secr3t!Pass"})
	require.NoError(t, err)

	bridge.SetAuthSnapshot(resp.Token, resp.User)

	v, ok := kv.Get(session.KeyToken)
	require.True(t, ok)
	require.Equal(t, "abc|123f00dd00", v)

	raw, ok := kv.Get(session.KeyUser)
	require.True(t, ok)
	require.Contains(t, raw, `"id":7`)
	require.Contains(t, raw, `"username":"jdoe"`)

	require.True(t, store.IsSessionValid())
	require.Equal(t, "abc|123f00dd00", store.ValidToken())
}

func TestProtectedEndpointsCarryBearerToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"user":{"id":7}}`))
	})

	c, _ := newTestClient(t, handler, "abc|4f6ad8de7")
	_, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer abc|4f6ad8de7", gotAuth)
}

func TestMalformedTokenIsNotAttached(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true,"entries":[]}`))
	})

	// Too short and missing the id/secret separator.
	c, _ := newTestClient(t, handler, "badtoken")
	_, err := c.ListEntries(context.Background())
	require.NoError(t, err)
	require.Empty(t, gotAuth)
}

func TestErrorEnvelopeFromJSONBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"message":"The given data was invalid.","errors":{"email":["The email has already been taken."]},"code":"validation_failed"}`))
	})

	c, _ := newTestClient(t, handler, "")
	_, err := c.Signup(context.Background(), SignupRequest{})
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.False(t, apiErr.Success)
	require.Equal(t, 422, apiErr.Status)
	require.Equal(t, "The given data was invalid.", apiErr.Message)
	require.Equal(t, "validation_failed", apiErr.Code)
	require.Equal(t, []string{"The email has already been taken."}, apiErr.Errors["email"])
}

func TestErrorEnvelopeFromUnparseableBody(t *testing.T) {
	for name, body := range map[string]string{
		"html":  "<html>Bad Gateway</html>",
		"empty": "",
	} {
		t.Run(name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(body))
			})

			c, _ := newTestClient(t, handler, "")
			err := c.Logout(context.Background())
			require.Error(t, err)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			require.Equal(t, 502, apiErr.Status)
			require.Equal(t, "HTTP 502: Bad Gateway", apiErr.Message)
		})
	}
}

func TestNetworkFailureHasStatusZero(t *testing.T) {
	store := session.New(kvstore.NewMemoryStore(), testLogger())
	bridge := session.NewBridge(session.ClientContext(), store, nil, false, testLogger())

	// A closed server: the request never reaches anything.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, bridge, testLogger())
	err := c.Logout(context.Background())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.IsNetworkError())
	require.Equal(t, 0, apiErr.Status)
	require.NotEmpty(t, apiErr.Message)
}

func TestServerFailureIsNeverStatusZero(t *testing.T) {
	for _, status := range []int{400, 401, 404, 429, 500} {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		c, _ := newTestClient(t, handler, "")
		err := c.Logout(context.Background())

		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		require.Equal(t, status, apiErr.Status)
		require.False(t, apiErr.IsNetworkError())
		require.NotEmpty(t, apiErr.Message)
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})

	c, _ := newTestClient(t, handler, "")
	_, err := c.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "secret"})
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, 200, apiErr.Status)
	require.Contains(t, apiErr.Message, "failed to decode response")
}

func TestEmptyBaseURLFallsBack(t *testing.T) {
	store := session.New(kvstore.NewMemoryStore(), testLogger())
	bridge := session.NewBridge(session.ClientContext(), store, nil, false, testLogger())

	c := New("", bridge, testLogger())
	require.Equal(t, DefaultBaseURL, c.baseURL)

	c = New("http://example.test/api/", bridge, testLogger())
	require.Equal(t, "http://example.test/api", c.baseURL, "trailing slash is trimmed")
}

func TestIsProtected(t *testing.T) {
	require.True(t, isProtected("/auth/user"))
	require.True(t, isProtected("/auth/logout"))
	require.True(t, isProtected("/entries"))
	require.True(t, isProtected("/entries/"+strings.Repeat("a", 26)))
	require.False(t, isProtected("/auth/login"))
	require.False(t, isProtected("/auth/signup"))
	require.False(t, isProtected("/auth/forgot-password"))
}
