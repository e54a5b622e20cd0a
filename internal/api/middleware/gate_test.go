package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

func TestRequireIdentity_Allows(t *testing.T) {
	for _, policy := range []Policy{Reject(), RedirectTo("/login")} {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		SetIdentity(c, &domain.User{ID: "u1"}, &domain.Session{ID: "s1"})

		called := false
		handler := RequireIdentity(policy)(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})

		if err := handler(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if !called || rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got called=%v code=%d", called, rec.Code)
		}
	}
}

func TestRequireIdentity_Reject(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/me", nil), rec)

	handler := RequireIdentity(Reject())(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireIdentity_Redirect(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)

	handler := RequireIdentity(RedirectTo("/login"))(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestRequireIdentity_ClearedIdentity(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	SetIdentity(c, &domain.User{ID: "u1"}, &domain.Session{ID: "s1"})
	ClearIdentity(c)

	handler := RequireIdentity(Reject())(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRedirectTo_DefaultPath(t *testing.T) {
	if p := RedirectTo(""); !p.Redirects() || p.redirectTo != "/login" {
		t.Fatalf("unexpected policy: %+v", p)
	}
	if Reject().Redirects() {
		t.Fatalf("reject policy must not redirect")
	}
}
