package ports

import (
	"context"
	"time"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// SessionStore keeps sessions until they expire or are deleted.
// Get reports a missing or expired session as domain.ErrSessionNotFound.
type SessionStore interface {
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error
}

// SessionManager turns authenticated identities into sessions and back.
type SessionManager interface {
	Serialize(user *domain.User) (string, error)
	Deserialize(ctx context.Context, token string) (*domain.User, error)

	Establish(ctx context.Context, user *domain.User, method string) (*domain.Session, error)
	Resolve(ctx context.Context, sessionID string) (*domain.User, *domain.Session, error)
	Destroy(ctx context.Context, sessionID string) error
	DestroyAll(ctx context.Context, user *domain.User) error
}
