package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dayleaf-dev/dayleaf/internal/session"
)

// ginCookies adapts a request context to the auth bridge's cookie mirror.
type ginCookies struct {
	c *gin.Context
}

func (g ginCookies) GetCookie(name string) (string, bool) {
	v, err := g.c.Cookie(name)
	if err != nil {
		return "", false
	}
	return v, true
}

func (g ginCookies) SetCookie(name, value string, maxAge int, secure bool) {
	g.c.SetSameSite(http.SameSiteLaxMode)
	g.c.SetCookie(name, value, maxAge, "/", "", secure, false)
}

func (g ginCookies) DeleteCookie(name string) {
	g.c.SetSameSite(http.SameSiteLaxMode)
	g.c.SetCookie(name, "", -1, "/", "", false, false)
}

// authBridge builds a per-request bridge for the server execution context:
// cookies are the only channel here, there is no client durable store.
func (s *Server) authBridge(c *gin.Context) *session.Bridge {
	return session.NewBridge(session.ServerContext(), nil, ginCookies{c: c}, s.config.Auth.Production, s.logger)
}
