package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/api/middleware"
	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
)

type authFixture struct {
	auth     *stubAuthService
	users    *stubUsers
	sessions *stubSessions
	throttle *stubThrottle
	recorder *stubRecorder
}

func newAuthFixture() *authFixture {
	return &authFixture{
		auth:     &stubAuthService{},
		users:    &stubUsers{},
		sessions: newStubSessions(),
		throttle: &stubThrottle{},
		recorder: &stubRecorder{},
	}
}

func (f *authFixture) handler(failure LoginFailurePolicy) *AuthHandler {
	return NewAuthHandler(AuthDeps{
		Auth:     f.auth,
		Users:    f.users,
		Sessions: f.sessions,
		Throttle: f.throttle,
		Recorder: f.recorder,
		Jar:      testJar,
		Failure:  failure,
		Logger:   zerolog.Nop(),
	})
}

func alice() *domain.User {
	return &domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: "h"}
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.signupFn = func(_ context.Context, in ports.SignupInput) (*domain.User, error) {
		if in.Name != "Alice" || in.Email != "alice@example.com" || in.Password != "pw1" {
			t.Fatalf("unexpected input: %+v", in)
		}
		return alice(), nil
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/signup", `{"name":"Alice","email":"alice@example.com","password":"pw1"}`), rec)

	if err := f.handler(LoginFailurePolicy{}).Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["id"] != "u1" || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must not be rendered")
	}
	if findCookie(rec, "sid") != nil {
		t.Fatalf("signup must not start a session")
	}
}

func TestAuthHandler_Signup_UserExists(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.signupFn = func(context.Context, ports.SignupInput) (*domain.User, error) {
		return nil, domain.ErrUserExists
	}

	c := e.NewContext(jsonRequest(http.MethodPost, "/signup", `{"name":"A","email":"a@example.com","password":"pw"}`), httptest.NewRecorder())

	if err := f.handler(LoginFailurePolicy{}).Signup(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Signup_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.signupFn = func(context.Context, ports.SignupInput) (*domain.User, error) {
		t.Fatalf("should not be called")
		return nil, nil
	}
	h := f.handler(LoginFailurePolicy{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/signup", "not-json"), httptest.NewRecorder())
	if code := httpCode(h.Signup(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/signup", `{"name":"A","email":"nope","password":"pw"}`), httptest.NewRecorder())
	if err := h.Signup(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.authenticateFn = func(_ context.Context, email, password string) (*domain.User, error) {
		if email != "alice@example.com" || password != "pw1" {
			t.Fatalf("unexpected args: %s %s", email, password)
		}
		return alice(), nil
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"Alice@Example.com","password":"pw1"}`), rec)

	if err := f.handler(LoginFailurePolicy{}).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	ck := findCookie(rec, "sid")
	if ck == nil || ck.Value == "" || !ck.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", ck)
	}
	if _, ok := f.sessions.sessions[ck.Value]; !ok {
		t.Fatalf("cookie does not name an established session")
	}
	if len(f.throttle.resets) != 1 {
		t.Fatalf("expected throttle reset after success")
	}
	if ev := f.recorder.last(); ev.Outcome != domain.OutcomeSuccess || ev.UserID != "u1" || ev.Method != domain.MethodLocal {
		t.Fatalf("unexpected login event: %+v", ev)
	}
}

func TestAuthHandler_Login_RotatesExistingSession(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) { return alice(), nil }
	old, _ := f.sessions.Establish(context.Background(), alice(), domain.MethodLocal)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"alice@example.com","password":"pw1"}`), rec)
	middleware.SetIdentity(c, alice(), old)

	if err := f.handler(LoginFailurePolicy{}).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(f.sessions.destroyed) != 1 || f.sessions.destroyed[0] != old.ID {
		t.Fatalf("expected previous session destroyed, got %v", f.sessions.destroyed)
	}
	if ck := findCookie(rec, "sid"); ck == nil || ck.Value == old.ID {
		t.Fatalf("expected a fresh session id")
	}
}

func TestAuthHandler_Login_RejectionsAreUniform(t *testing.T) {
	for _, reason := range []domain.RejectReason{domain.RejectNoSuchUser, domain.RejectBadPassword} {
		e := newTestEcho()
		f := newAuthFixture()
		f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) {
			return nil, &domain.AuthRejection{Reason: reason}
		}

		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"a@example.com","password":"x"}`), rec)

		err := f.handler(LoginFailurePolicy{}).Login(c)
		if err != domain.ErrInvalidCredentials {
			t.Fatalf("%s: expected bare ErrInvalidCredentials, got %v", reason, err)
		}
		if findCookie(rec, "sid") != nil {
			t.Fatalf("%s: rejected login must not set a session", reason)
		}
		if ev := f.recorder.last(); ev.Outcome != domain.OutcomeRejected || ev.Reason != string(reason) {
			t.Fatalf("%s: unexpected login event: %+v", reason, ev)
		}
		if len(f.throttle.resets) != 0 {
			t.Fatalf("%s: rejected login must not reset the throttle", reason)
		}
	}
}

func TestAuthHandler_Login_RedirectFailureMode(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) {
		return nil, &domain.AuthRejection{Reason: domain.RejectBadPassword}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"a@example.com","password":"x"}`), rec)

	if err := f.handler(LoginFailurePolicy{RedirectTo: "/login"}).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected 302 to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthHandler_Login_Throttled(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.throttle.deny = true
	f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) {
		t.Fatalf("throttled attempts must not reach the credential check")
		return nil, nil
	}

	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"a@example.com","password":"x"}`), httptest.NewRecorder())

	if err := f.handler(LoginFailurePolicy{}).Login(c); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if ev := f.recorder.last(); ev.Outcome != domain.OutcomeThrottled {
		t.Fatalf("unexpected login event: %+v", ev)
	}
}

func TestAuthHandler_Login_ThrottleErrorFailsOpen(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.throttle.err = errors.New("redis down")
	f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) { return alice(), nil }

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"alice@example.com","password":"pw1"}`), rec)

	if err := f.handler(LoginFailurePolicy{}).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_SessionFailure(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.sessions.establishErr = errors.New("redis down")
	f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) { return alice(), nil }

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"alice@example.com","password":"pw1"}`), rec)

	if err := f.handler(LoginFailurePolicy{}).Login(c); err == nil {
		t.Fatalf("expected error")
	}
	if findCookie(rec, "sid") != nil {
		t.Fatalf("no cookie without a session")
	}
	if ev := f.recorder.last(); ev.Outcome != domain.OutcomeError {
		t.Fatalf("unexpected login event: %+v", ev)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	f.auth.authenticateFn = func(context.Context, string, string) (*domain.User, error) {
		t.Fatalf("should not be called")
		return nil, nil
	}
	h := f.handler(LoginFailurePolicy{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/login", "{"), httptest.NewRecorder())
	if code := httpCode(h.Login(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"a@example.com"}`), httptest.NewRecorder())
	if err := h.Login(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	sess, _ := f.sessions.Establish(context.Background(), alice(), domain.MethodLocal)
	h := f.handler(LoginFailurePolicy{})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sess.ID})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.SetIdentity(c, alice(), sess)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, ok := f.sessions.sessions[sess.ID]; ok {
		t.Fatalf("session not destroyed")
	}
	if ck := findCookie(rec, "sid"); ck == nil || ck.MaxAge >= 0 {
		t.Fatalf("expected session cookie to be cleared, got %+v", ck)
	}
	if _, ok := middleware.CurrentUser(c); ok {
		t.Fatalf("identity still on context")
	}

	// Anonymous logout succeeds too.
	rec = httptest.NewRecorder()
	if err := h.Logout(e.NewContext(httptest.NewRequest(http.MethodGet, "/logout", nil), rec)); err != nil {
		t.Fatalf("anonymous logout: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	h := newAuthFixture().handler(LoginFailurePolicy{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/me", nil), rec)
	middleware.SetIdentity(c, alice(), &domain.Session{ID: "s"})

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "u1" || len(resp.LoginMethods) != 1 || resp.LoginMethods[0] != domain.MethodLocal {
		t.Fatalf("unexpected response: %+v", resp)
	}

	anon := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/me", nil), httptest.NewRecorder())
	if code := httpCode(h.Me(anon)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAuthHandler_DeleteMe(t *testing.T) {
	e := newTestEcho()
	f := newAuthFixture()
	sess, _ := f.sessions.Establish(context.Background(), alice(), domain.MethodLocal)
	_, _ = f.sessions.Establish(context.Background(), alice(), string(domain.ProviderGoogle))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/me", nil), rec)
	middleware.SetIdentity(c, alice(), sess)

	if err := f.handler(LoginFailurePolicy{}).DeleteMe(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(f.users.deleted) != 1 || f.users.deleted[0] != "u1" {
		t.Fatalf("identity not deleted: %v", f.users.deleted)
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatalf("expected every session destroyed, %d left", len(f.sessions.sessions))
	}
}

func TestAuthHandler_Dashboard(t *testing.T) {
	e := newTestEcho()
	h := newAuthFixture().handler(LoginFailurePolicy{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)
	middleware.SetIdentity(c, alice(), &domain.Session{ID: "s"})

	if err := h.Dashboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp messageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message != "welcome, Alice" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestAuthHandler_LoginPage(t *testing.T) {
	e := newTestEcho()
	h := newAuthFixture().handler(LoginFailurePolicy{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/login?error=invalid_state", nil), rec)

	if err := h.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp loginPageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != "invalid_state" {
		t.Fatalf("expected error code to be echoed, got %+v", resp)
	}
}
