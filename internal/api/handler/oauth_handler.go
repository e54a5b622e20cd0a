package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/fitlog/fitness-api/internal/api/cookie"
	"github.com/fitlog/fitness-api/internal/api/middleware"
	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

// Error codes appended to the failure redirect as ?error=<code>.
const (
	oauthErrDenied        = "access_denied"
	oauthErrState         = "invalid_state"
	oauthErrExchange      = "exchange_failed"
	oauthErrBridge        = "bridge_failed"
	oauthErrLinked        = "provider_linked"
	oauthErrAccountExists = "account_exists"
	oauthErrSession       = "session_failed"
)

// OAuthDeps are the collaborators of OAuthHandler.
type OAuthDeps struct {
	Providers ports.ProviderRegistry
	State     ports.OAuthState
	Bridge    ports.IdentityBridge
	Sessions  ports.SessionManager
	Recorder  ports.LoginRecorder
	Jar       cookie.Jar
	// StateTTL bounds the transient state and PKCE cookies.
	StateTTL        time.Duration
	SuccessRedirect string
	FailureRedirect string
	Logger          zerolog.Logger
}

type OAuthHandler struct {
	deps OAuthDeps
}

func NewOAuthHandler(deps OAuthDeps) *OAuthHandler {
	if deps.StateTTL <= 0 {
		deps.StateTTL = 5 * time.Minute
	}
	if deps.SuccessRedirect == "" {
		deps.SuccessRedirect = "/dashboard"
	}
	if deps.FailureRedirect == "" {
		deps.FailureRedirect = "/login"
	}
	return &OAuthHandler{deps: deps}
}

// Begin redirects the browser to the provider's consent page.
//
// @Summary      Start provider login
// @Tags         auth
// @Param        provider  path  string  true  "Identity provider"  Enums(google, facebook)
// @Success      302  "Redirect to the provider"
// @Failure      404  {object}  ErrorResponse
// @Router       /auth/{provider} [get]
func (h *OAuthHandler) Begin(c echo.Context) error {
	provider, err := h.deps.Providers.Get(c.Param("provider"))
	if err != nil {
		return err
	}

	state, err := h.deps.State.Issue(provider.Name())
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()

	h.deps.Jar.SetTransient(c, cookie.OAuthState, state, h.deps.StateTTL)
	h.deps.Jar.SetTransient(c, cookie.OAuthPKCE, verifier, h.deps.StateTTL)

	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state, verifier))
}

// Callback completes a provider round trip. Every failure lands on the
// failure redirect with an error code; success lands on the success redirect
// with a session cookie set.
//
// @Summary      Provider callback
// @Tags         auth
// @Param        provider  path   string  true   "Identity provider"  Enums(google, facebook)
// @Param        state     query  string  true   "State issued by /auth/{provider}"
// @Param        code      query  string  false  "Authorization code"
// @Param        error     query  string  false  "Provider error"
// @Success      302  "Redirect to the success or failure page"
// @Failure      404  {object}  ErrorResponse
// @Router       /auth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider, err := h.deps.Providers.Get(c.Param("provider"))
	if err != nil {
		return err
	}
	name := provider.Name()
	ctx := c.Request().Context()
	event := loginEvent(c, string(name), "")

	stateCookie := h.deps.Jar.Transient(c, cookie.OAuthState)
	verifier := h.deps.Jar.Transient(c, cookie.OAuthPKCE)
	h.deps.Jar.ClearTransient(c, cookie.OAuthState)
	h.deps.Jar.ClearTransient(c, cookie.OAuthPKCE)

	state := c.QueryParam("state")
	if state == "" || state != stateCookie {
		return h.fail(c, event, oauthErrState, domain.ErrInvalidOAuthState)
	}
	if err := h.deps.State.Validate(state, name); err != nil {
		return h.fail(c, event, oauthErrState, err)
	}

	if perr := c.QueryParam("error"); perr != "" {
		return h.fail(c, event, oauthErrDenied, errors.New("provider returned "+perr))
	}
	code := c.QueryParam("code")
	if code == "" {
		return h.fail(c, event, oauthErrExchange, errors.New("missing authorization code"))
	}

	profile, err := provider.Exchange(ctx, code, verifier)
	if err != nil {
		return h.fail(c, event, oauthErrExchange, err)
	}

	// A signed-in identity links the provider instead of switching accounts.
	if current, ok := middleware.CurrentUser(c); ok {
		user, err := h.deps.Bridge.Link(ctx, current.ID, *profile)
		if err != nil {
			return h.fail(c, event, linkErrorCode(err), err)
		}
		event.UserID = user.ID
		h.succeed(event)
		return c.Redirect(http.StatusFound, h.deps.SuccessRedirect)
	}

	res, err := h.deps.Bridge.FindOrCreate(ctx, *profile)
	if err != nil {
		return h.fail(c, event, oauthErrBridge, err)
	}
	event.UserID = res.User.ID

	sess, err := h.deps.Sessions.Establish(ctx, res.User, string(name))
	if err != nil {
		return h.fail(c, event, oauthErrSession, err)
	}
	h.deps.Jar.SetSession(c, sess.ID)
	middleware.SetIdentity(c, res.User, sess)

	h.succeed(event)
	return c.Redirect(http.StatusFound, h.deps.SuccessRedirect)
}

func linkErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderLinked):
		return oauthErrLinked
	case errors.Is(err, domain.ErrUserExists):
		return oauthErrAccountExists
	}
	return oauthErrBridge
}

func (h *OAuthHandler) succeed(event domain.LoginEvent) {
	event.Outcome = domain.OutcomeSuccess
	metrics.LoginAttemptsTotal.WithLabelValues(event.Method, domain.OutcomeSuccess).Inc()
	h.deps.Recorder.Record(event)
}

func (h *OAuthHandler) fail(c echo.Context, event domain.LoginEvent, code string, cause error) error {
	outcome := domain.OutcomeRejected
	if code == oauthErrBridge || code == oauthErrSession {
		outcome = domain.OutcomeError
	}
	event.Outcome = outcome
	event.Reason = code
	metrics.LoginAttemptsTotal.WithLabelValues(event.Method, outcome).Inc()
	h.deps.Recorder.Record(event)

	h.deps.Logger.Warn().
		Err(cause).
		Str("provider", event.Method).
		Str("code", code).
		Msg("oauth callback failed")

	target, err := url.Parse(h.deps.FailureRedirect)
	if err != nil {
		target = &url.URL{Path: "/login"}
	}
	q := target.Query()
	q.Set("error", code)
	target.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, target.String())
}
