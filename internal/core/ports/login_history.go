package ports

import (
	"context"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// LoginEventRepository persists login history.
type LoginEventRepository interface {
	Insert(ctx context.Context, event *domain.LoginEvent) error
}

// LoginHistoryService validates and stores a single login event.
type LoginHistoryService interface {
	Process(ctx context.Context, event domain.LoginEvent) error
}

// LoginRecorder hands login events off without blocking the caller.
type LoginRecorder interface {
	Record(event domain.LoginEvent)
}

// LoginThrottle counts login attempts per key within a window. A successful
// login resets the key.
type LoginThrottle interface {
	// Allow registers an attempt for key and reports whether it may proceed.
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
