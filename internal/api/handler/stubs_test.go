package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/fitlog/fitness-api/internal/api/cookie"
	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
)

var testJar = cookie.Jar{SessionName: "sid"}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

type stubAuthService struct {
	signupFn       func(ctx context.Context, in ports.SignupInput) (*domain.User, error)
	authenticateFn func(ctx context.Context, email, password string) (*domain.User, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	return s.authenticateFn(ctx, email, password)
}

// stubSessions keeps sessions in memory keyed by ID.
type stubSessions struct {
	mu           sync.Mutex
	seq          int
	sessions     map[string]*domain.Session
	establishErr error
	destroyed    []string
	destroyedAll []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: make(map[string]*domain.Session)}
}

func (s *stubSessions) Serialize(u *domain.User) (string, error) { return u.ID, nil }

func (s *stubSessions) Deserialize(_ context.Context, token string) (*domain.User, error) {
	return &domain.User{ID: token}, nil
}

func (s *stubSessions) Establish(_ context.Context, u *domain.User, method string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.establishErr != nil {
		return nil, s.establishErr
	}
	s.seq++
	sess := &domain.Session{ID: fmt.Sprintf("sess-%d", s.seq), Token: u.ID, Method: method}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *stubSessions) Resolve(_ context.Context, id string) (*domain.User, *domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return &domain.User{ID: sess.Token}, sess, nil
}

func (s *stubSessions) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = append(s.destroyed, id)
	delete(s.sessions, id)
	return nil
}

func (s *stubSessions) DestroyAll(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyedAll = append(s.destroyedAll, u.ID)
	for id, sess := range s.sessions {
		if sess.Token == u.ID {
			delete(s.sessions, id)
		}
	}
	return nil
}

type stubThrottle struct {
	deny     bool
	err      error
	attempts map[string]int
	resets   []string
}

func (t *stubThrottle) Allow(_ context.Context, key string) (bool, error) {
	if t.attempts == nil {
		t.attempts = make(map[string]int)
	}
	t.attempts[key]++
	if t.err != nil {
		return false, t.err
	}
	return !t.deny, nil
}

func (t *stubThrottle) Reset(_ context.Context, key string) error {
	t.resets = append(t.resets, key)
	return nil
}

type stubRecorder struct {
	mu     sync.Mutex
	events []domain.LoginEvent
}

func (r *stubRecorder) Record(e domain.LoginEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *stubRecorder) last() domain.LoginEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.LoginEvent{}
	}
	return r.events[len(r.events)-1]
}

// stubUsers implements ports.CredentialStore; only Delete is exercised here.
type stubUsers struct {
	deleted   []string
	deleteErr error
}

func (u *stubUsers) Create(context.Context, *domain.User) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (u *stubUsers) FindByID(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (u *stubUsers) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (u *stubUsers) FindByProviderID(context.Context, domain.Provider, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (u *stubUsers) LinkProvider(context.Context, string, domain.Provider, string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (u *stubUsers) Delete(_ context.Context, id string) error {
	u.deleted = append(u.deleted, id)
	return u.deleteErr
}
