package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

// Policy says how a protected route answers an anonymous request. Every
// protected route declares one explicitly.
type Policy struct {
	redirectTo string
}

// Reject answers anonymous requests with 401. Used by API routes.
func Reject() Policy { return Policy{} }

// RedirectTo answers anonymous requests with a 302 to path. Used by page routes.
func RedirectTo(path string) Policy {
	if path == "" {
		path = "/login"
	}
	return Policy{redirectTo: path}
}

// Redirects reports whether the policy redirects instead of rejecting.
func (p Policy) Redirects() bool { return p.redirectTo != "" }

// RequireIdentity passes requests that carry a resolved identity through
// unchanged and short-circuits the rest according to policy.
func RequireIdentity(policy Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentUser(c); ok {
				metrics.GateDecisionsTotal.WithLabelValues("allow").Inc()
				return next(c)
			}

			if policy.Redirects() {
				metrics.GateDecisionsTotal.WithLabelValues("redirect").Inc()
				return c.Redirect(http.StatusFound, policy.redirectTo)
			}

			metrics.GateDecisionsTotal.WithLabelValues("reject").Inc()
			return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		}
	}
}
