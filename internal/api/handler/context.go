package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fitlog/fitness-api/internal/api/middleware"
	"github.com/fitlog/fitness-api/internal/core/domain"
)

// currentUser returns the identity resolved by the session middleware.
// Protected routes sit behind RequireIdentity, so a miss here means the
// route was wired without the gate; fail closed with 401.
func currentUser(c echo.Context) (*domain.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
	}
	return user, nil
}

// loginEvent prefills a login event with request metadata.
func loginEvent(c echo.Context, method, outcome string) domain.LoginEvent {
	return domain.LoginEvent{
		Method:     method,
		Outcome:    outcome,
		IP:         c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
		OccurredAt: time.Now(),
	}
}
