package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestJar_SetSession(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	jar := Jar{SessionName: "sid", Secure: true, SessionMaxAge: time.Hour}
	jar.SetSession(c, "abc")

	ck := responseCookie(t, rec, "sid")
	if ck.Value != "abc" || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode || ck.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", ck)
	}
	if ck.MaxAge != 3600 {
		t.Fatalf("expected max-age 3600, got %d", ck.MaxAge)
	}
}

func TestJar_InsecureOutsideProduction(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	Jar{SessionName: "sid"}.SetSession(c, "abc")

	ck := responseCookie(t, rec, "sid")
	if ck.Secure || !ck.HttpOnly {
		t.Fatalf("unexpected cookie attributes: %+v", ck)
	}
}

func TestJar_ClearSession(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	Jar{SessionName: "sid"}.ClearSession(c)

	ck := responseCookie(t, rec, "sid")
	if ck.Value != "" || ck.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", ck)
	}
}

func TestJar_Read(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
	req.AddCookie(&http.Cookie{Name: OAuthState, Value: "st"})
	c := e.NewContext(req, httptest.NewRecorder())

	jar := Jar{SessionName: "sid"}
	if got := jar.SessionID(c); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := jar.Transient(c, OAuthState); got != "st" {
		t.Fatalf("expected st, got %q", got)
	}
	if got := jar.Transient(c, OAuthPKCE); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
