package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/api/cookie"
	"github.com/fitlog/fitness-api/internal/api/middleware"
	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

// LoginFailurePolicy selects how a rejected local login is answered. The
// body never says whether the email or the password was wrong.
type LoginFailurePolicy struct {
	// RedirectTo, when set, answers with 302 to this path instead of 401 JSON.
	RedirectTo string
}

// AuthDeps are the collaborators of AuthHandler.
type AuthDeps struct {
	Auth     ports.AuthService
	Users    ports.CredentialStore
	Sessions ports.SessionManager
	Throttle ports.LoginThrottle
	Recorder ports.LoginRecorder
	Jar      cookie.Jar
	Failure  LoginFailurePolicy
	Logger   zerolog.Logger
}

type AuthHandler struct {
	deps AuthDeps
}

func NewAuthHandler(deps AuthDeps) *AuthHandler {
	return &AuthHandler{deps: deps}
}

// Signup creates a local identity.
//
// @Summary      Sign up with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.deps.Auth.Signup(c.Request().Context(), ports.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{Message: "signup successful", User: toUserResponse(user)})
}

// Login authenticates with email and password and starts a session.
//
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  messageResponse
// @Failure      302   "Rejected, when the redirect failure mode is configured"
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	email := domain.NormalizeEmail(req.Email)
	event := loginEvent(c, domain.MethodLocal, "")
	event.Email = email
	throttleKey := c.RealIP() + "|" + email

	allowed, err := h.deps.Throttle.Allow(ctx, throttleKey)
	if err != nil {
		h.deps.Logger.Warn().Err(err).Msg("login throttle unavailable, allowing attempt")
		allowed = true
	}
	if !allowed {
		h.finish(event, domain.OutcomeThrottled, "")
		return domain.ErrTooManyAttempts
	}

	user, err := h.deps.Auth.Authenticate(ctx, email, req.Password)
	if err != nil {
		var rejection *domain.AuthRejection
		switch {
		case errors.As(err, &rejection):
			h.deps.Logger.Info().
				Str("reason", string(rejection.Reason)).
				Str("ip", event.IP).
				Msg("local login rejected")
			h.finish(event, domain.OutcomeRejected, string(rejection.Reason))
			return h.rejectLogin(c)
		case errors.Is(err, domain.ErrValidation):
			return err
		default:
			h.finish(event, domain.OutcomeError, "store")
			return err
		}
	}

	if err := h.rotate(c, user, domain.MethodLocal); err != nil {
		h.finish(event, domain.OutcomeError, "session")
		return err
	}

	if err := h.deps.Throttle.Reset(ctx, throttleKey); err != nil {
		h.deps.Logger.Warn().Err(err).Msg("failed to reset login throttle")
	}
	event.UserID = user.ID
	h.finish(event, domain.OutcomeSuccess, "")

	return c.JSON(http.StatusOK, messageResponse{Message: "login successful", User: toUserResponse(user)})
}

// rotate replaces any session the request already carries with a fresh one.
func (h *AuthHandler) rotate(c echo.Context, user *domain.User, method string) error {
	ctx := c.Request().Context()
	if old, ok := middleware.CurrentSession(c); ok {
		if err := h.deps.Sessions.Destroy(ctx, old.ID); err != nil {
			return err
		}
	}

	sess, err := h.deps.Sessions.Establish(ctx, user, method)
	if err != nil {
		return err
	}
	h.deps.Jar.SetSession(c, sess.ID)
	middleware.SetIdentity(c, user, sess)
	return nil
}

func (h *AuthHandler) rejectLogin(c echo.Context) error {
	if h.deps.Failure.RedirectTo != "" {
		return c.Redirect(http.StatusFound, h.deps.Failure.RedirectTo)
	}
	return domain.ErrInvalidCredentials
}

func (h *AuthHandler) finish(event domain.LoginEvent, outcome, reason string) {
	event.Outcome = outcome
	event.Reason = reason
	metrics.LoginAttemptsTotal.WithLabelValues(event.Method, outcome).Inc()
	h.deps.Recorder.Record(event)
}

// Logout destroys the current session. It succeeds whether or not the
// request carried one.
//
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	if sid := h.deps.Jar.SessionID(c); sid != "" {
		if err := h.deps.Sessions.Destroy(c.Request().Context(), sid); err != nil {
			return err
		}
		if user, ok := middleware.CurrentUser(c); ok {
			h.deps.Logger.Info().Str("user_id", user.ID).Msg("logged out")
		}
	}

	h.deps.Jar.ClearSession(c)
	middleware.ClearIdentity(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Me returns the current identity.
//
// @Summary      Current identity
// @Tags         account
// @Produce      json
// @Success      200  {object}  userResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /api/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteMe removes the current identity and every session it holds.
//
// @Summary      Delete the current identity
// @Tags         account
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/me [delete]
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if err := h.deps.Users.Delete(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	// Remaining sessions would resolve to nothing anyway; drop them eagerly.
	if err := h.deps.Sessions.DestroyAll(ctx, user); err != nil {
		h.deps.Logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to destroy sessions of deleted identity")
	}

	h.deps.Jar.ClearSession(c)
	middleware.ClearIdentity(c)
	h.deps.Logger.Info().Str("user_id", user.ID).Msg("identity deleted")
	return c.NoContent(http.StatusNoContent)
}

// Dashboard is the main protected view that logins land on.
//
// @Summary      Dashboard
// @Tags         account
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      302  "Redirect to the login page when anonymous"
// @Router       /dashboard [get]
func (h *AuthHandler) Dashboard(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	greeting := "welcome"
	if user.Name != "" {
		greeting = "welcome, " + user.Name
	}
	return c.JSON(http.StatusOK, messageResponse{Message: greeting, User: toUserResponse(user)})
}

// LoginPage is where the gate and failed provider logins send the browser
// when no frontend page is configured. It echoes the callback error code.
//
// @Summary      Login landing
// @Tags         auth
// @Produce      json
// @Param        error  query     string  false  "Error code from a failed provider login"
// @Success      200    {object}  loginPageResponse
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	resp := loginPageResponse{Message: "sign in with POST /login or GET /auth/{provider}"}
	if code := c.QueryParam("error"); code != "" {
		resp.Error = code
	}
	if user, ok := middleware.CurrentUser(c); ok {
		resp.Message = "already signed in as " + user.ID
	}
	return c.JSON(http.StatusOK, resp)
}
