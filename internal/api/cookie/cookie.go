// Package cookie sets and reads the cookies the auth flows depend on: the
// session cookie and the short-lived OAuth state and PKCE cookies.
package cookie

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Names of the transient cookies used during an OAuth round trip.
const (
	OAuthState = "oauth_state"
	OAuthPKCE  = "oauth_pkce"
)

// Jar carries the cookie attributes shared by every cookie the API sets.
// All cookies are HttpOnly, SameSite=Lax and scoped to "/".
type Jar struct {
	SessionName string
	Secure      bool
	// SessionMaxAge bounds the browser-side lifetime of the session cookie.
	// Zero makes it a browser-session cookie.
	SessionMaxAge time.Duration
}

// SetSession writes the session cookie.
func (j Jar) SetSession(c echo.Context, sessionID string) {
	c.SetCookie(j.build(j.SessionName, sessionID, j.SessionMaxAge))
}

// ClearSession expires the session cookie.
func (j Jar) ClearSession(c echo.Context) {
	j.clear(c, j.SessionName)
}

// SessionID returns the session cookie value, or "" when absent.
func (j Jar) SessionID(c echo.Context) string {
	return j.read(c, j.SessionName)
}

// SetTransient writes a short-lived cookie such as OAuthState.
func (j Jar) SetTransient(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(j.build(name, value, ttl))
}

// Transient returns a transient cookie value, or "" when absent.
func (j Jar) Transient(c echo.Context, name string) string {
	return j.read(c, name)
}

// ClearTransient expires a transient cookie.
func (j Jar) ClearTransient(c echo.Context, name string) {
	j.clear(c, name)
}

func (j Jar) build(name, value string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		ck.MaxAge = int(maxAge.Seconds())
		ck.Expires = time.Now().Add(maxAge)
	}
	return ck
}

func (j Jar) clear(c echo.Context, name string) {
	ck := j.build(name, "", 0)
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	c.SetCookie(ck)
}

func (j Jar) read(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
