package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

const (
	defaultIdleTTL = 24 * time.Hour
	defaultMaxAge  = 7 * 24 * time.Hour
	sessionIDBytes = 32
)

// SessionPolicy bounds session lifetime. IdleTTL slides on every resolved
// request; MaxAge is measured from login and never extends.
type SessionPolicy struct {
	IdleTTL time.Duration
	MaxAge  time.Duration
}

// SessionManager serializes identities into sessions and resolves them back.
type SessionManager struct {
	users    ports.CredentialStore
	sessions ports.SessionStore
	policy   SessionPolicy
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() (string, error)
}

func NewSessionManager(users ports.CredentialStore, sessions ports.SessionStore, policy SessionPolicy, logger zerolog.Logger) *SessionManager {
	if policy.IdleTTL <= 0 {
		policy.IdleTTL = defaultIdleTTL
	}
	if policy.MaxAge <= 0 {
		policy.MaxAge = defaultMaxAge
	}
	if policy.IdleTTL > policy.MaxAge {
		policy.IdleTTL = policy.MaxAge
	}
	return &SessionManager{
		users:    users,
		sessions: sessions,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
		newID:    newSessionID,
	}
}

// Serialize reduces an identity to the token stored in its session: the
// identity ID.
func (m *SessionManager) Serialize(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", domain.Invalid("cannot serialize an identity without an id")
	}
	return user.ID, nil
}

// Deserialize loads the identity a token refers to. An identity deleted since
// the token was issued yields domain.ErrSessionNotFound.
func (m *SessionManager) Deserialize(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	user, err := m.users.FindByID(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("deserialize identity: %w", err)
	}
	return user, nil
}

// Establish starts a new session for an authenticated identity.
func (m *SessionManager) Establish(ctx context.Context, user *domain.User, method string) (*domain.Session, error) {
	token, err := m.Serialize(user)
	if err != nil {
		return nil, err
	}
	id, err := m.newID()
	if err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}

	now := m.now().UTC()
	sess := domain.Session{
		ID:                id,
		Token:             token,
		Method:            method,
		CreatedAt:         now,
		LastSeenAt:        now,
		ExpiresAt:         now.Add(m.policy.IdleTTL),
		AbsoluteExpiresAt: now.Add(m.policy.MaxAge),
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}

	m.logger.Info().
		Str("user_id", user.ID).
		Str("session", domain.ShortID(id)).
		Str("method", method).
		Msg("session established")
	return &sess, nil
}

// Resolve maps a session ID to its identity. Missing, expired and orphaned
// sessions all yield domain.ErrSessionNotFound; orphans are removed.
func (m *SessionManager) Resolve(ctx context.Context, sessionID string) (*domain.User, *domain.Session, error) {
	if sessionID == "" {
		return nil, nil, domain.ErrSessionNotFound
	}

	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			metrics.SessionsResolvedTotal.WithLabelValues("miss").Inc()
			return nil, nil, domain.ErrSessionNotFound
		}
		metrics.SessionsResolvedTotal.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("resolve session: %w", err)
	}

	now := m.now().UTC()
	if sess.Expired(now) {
		m.discard(ctx, sessionID)
		metrics.SessionsResolvedTotal.WithLabelValues("expired").Inc()
		return nil, nil, domain.ErrSessionNotFound
	}

	user, err := m.Deserialize(ctx, sess.Token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			m.discard(ctx, sessionID)
			metrics.SessionsResolvedTotal.WithLabelValues("orphaned").Inc()
			return nil, nil, domain.ErrSessionNotFound
		}
		metrics.SessionsResolvedTotal.WithLabelValues("error").Inc()
		return nil, nil, err
	}

	expiresAt := now.Add(m.policy.IdleTTL)
	if expiresAt.After(sess.AbsoluteExpiresAt) {
		expiresAt = sess.AbsoluteExpiresAt
	}
	if err := m.sessions.Touch(ctx, sessionID, now, expiresAt); err != nil {
		m.logger.Warn().Err(err).Str("session", domain.ShortID(sessionID)).Msg("failed to extend session")
	} else {
		sess.LastSeenAt = now
		sess.ExpiresAt = expiresAt
	}

	metrics.SessionsResolvedTotal.WithLabelValues("hit").Inc()
	return user, sess, nil
}

// Destroy ends one session. Destroying an unknown session is not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyAll ends every session that serializes to user.
func (m *SessionManager) DestroyAll(ctx context.Context, user *domain.User) error {
	token, err := m.Serialize(user)
	if err != nil {
		return err
	}
	if err := m.sessions.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("destroy sessions: %w", err)
	}
	return nil
}

func (m *SessionManager) discard(ctx context.Context, sessionID string) {
	if err := m.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		m.logger.Warn().Err(err).Str("session", domain.ShortID(sessionID)).Msg("failed to discard dead session")
	}
}

// newSessionID returns 256 bits of URL-safe randomness.
func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
