package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// SessionStore keeps sessions as JSON under session:<id>, with a per-identity
// set user_sessions:<token> so every session of an identity can be revoked.
type SessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func sessionKey(id string) string     { return "session:" + id }
func tokenIndexKey(tok string) string { return "user_sessions:" + tok }

func (s *SessionStore) Create(ctx context.Context, sess domain.Session) error {
	if sess.ID == "" || sess.Token == "" {
		return fmt.Errorf("session: missing id or token")
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	idx := tokenIndexKey(sess.Token)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), data, ttl)
		pipe.SAdd(ctx, idx, sess.ID)
		pipe.ExpireAt(ctx, idx, sess.AbsoluteExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &sess, nil
}

// Touch slides the session's idle expiry. The write only succeeds while the
// key still exists, so a concurrent logout is never undone.
func (s *SessionStore) Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, id)
	}
	sess.LastSeenAt = lastSeen
	sess.ExpiresAt = expiresAt

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	ok, err := s.client.SetXX(ctx, sessionKey(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		// Unreadable payload: still drop the key itself.
		return s.client.Del(ctx, sessionKey(id)).Err()
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, tokenIndexKey(sess.Token), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// DeleteByToken removes every session serialized to token.
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	idx := tokenIndexKey(token)
	ids, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("session: list by token: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, idx)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session: delete by token: %w", err)
	}
	return nil
}
