package ports

import (
	"context"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// CredentialStore persists identity records. Implementations enforce email
// and per-provider-ID uniqueness at the storage layer and report a violation
// as domain.ErrUserExists. Absence is domain.ErrUserNotFound.
type CredentialStore interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByProviderID(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error)
	// LinkProvider binds providerID to an existing identity. It is a no-op when
	// the same ID is already linked and fails with domain.ErrProviderLinked when
	// the identity is linked to a different ID for that provider.
	LinkProvider(ctx context.Context, userID string, provider domain.Provider, providerID string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
