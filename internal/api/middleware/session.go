package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/api/cookie"
	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
)

const (
	userKey    = "user"
	sessionKey = "session"
)

// SessionConfig configures LoadSession.
type SessionConfig struct {
	Skipper  echomiddleware.Skipper
	Sessions ports.SessionManager
	Jar      cookie.Jar
	Logger   zerolog.Logger
}

// LoadSession resolves the session cookie, when present, and injects the
// identity and session into the context. It never rejects a request on its
// own: a missing, expired or orphaned session leaves the request anonymous
// and clears the stale cookie. Store failures surface as errors.
func LoadSession(cfg SessionConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomiddleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			sid := cfg.Jar.SessionID(c)
			if sid == "" {
				return next(c)
			}

			user, sess, err := cfg.Sessions.Resolve(c.Request().Context(), sid)
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				cfg.Logger.Debug().Str("session", domain.ShortID(sid)).Msg("stale session cookie cleared")
				cfg.Jar.ClearSession(c)
				return next(c)
			case err != nil:
				return err
			}

			c.Set(userKey, user)
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// CurrentUser returns the identity LoadSession resolved for this request.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	u, ok := c.Get(userKey).(*domain.User)
	return u, ok && u != nil
}

// CurrentSession returns the session LoadSession resolved for this request.
func CurrentSession(c echo.Context) (*domain.Session, bool) {
	s, ok := c.Get(sessionKey).(*domain.Session)
	return s, ok && s != nil
}

// SetIdentity records a freshly established identity and session on the
// context, for handlers later in the same request.
func SetIdentity(c echo.Context, user *domain.User, sess *domain.Session) {
	c.Set(userKey, user)
	c.Set(sessionKey, sess)
}

// ClearIdentity drops the identity from the context.
func ClearIdentity(c echo.Context) {
	c.Set(userKey, nil)
	c.Set(sessionKey, nil)
}
