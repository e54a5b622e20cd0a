package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

// maxResolveAttempts bounds the find/create/conflict loop.
const maxResolveAttempts = 3

// IdentityBridge resolves OAuth profiles to local identities.
type IdentityBridge struct {
	store  ports.CredentialStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewIdentityBridge(store ports.CredentialStore, logger zerolog.Logger) *IdentityBridge {
	return &IdentityBridge{store: store, logger: logger, now: time.Now}
}

// FindOrCreate looks the identity up by provider ID and creates it when
// absent. Concurrent first logins for the same provider ID race on the
// store's unique index; the loser sees domain.ErrUserExists, retries the
// find and returns the winner's record.
func (b *IdentityBridge) FindOrCreate(ctx context.Context, profile domain.ExternalProfile) (*ports.BridgeResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBridgeFailed, err)
	}
	provider := string(profile.Provider)

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		user, err := b.store.FindByProviderID(ctx, profile.Provider, profile.ID)
		if err == nil {
			metrics.IdentityBridgeTotal.WithLabelValues(provider, string(ports.BridgeFound)).Inc()
			return &ports.BridgeResult{User: user, Outcome: ports.BridgeFound}, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.IdentityBridgeTotal.WithLabelValues(provider, "failed").Inc()
			return nil, fmt.Errorf("%w: find: %w", domain.ErrBridgeFailed, err)
		}

		created, err := b.store.Create(ctx, b.newIdentity(profile))
		if err == nil {
			metrics.IdentityBridgeTotal.WithLabelValues(provider, string(ports.BridgeCreated)).Inc()
			b.logger.Info().
				Str("provider", provider).
				Str("user_id", created.ID).
				Msg("identity created from provider profile")
			return &ports.BridgeResult{User: created, Outcome: ports.BridgeCreated}, nil
		}
		if !errors.Is(err, domain.ErrUserExists) {
			metrics.IdentityBridgeTotal.WithLabelValues(provider, "failed").Inc()
			return nil, fmt.Errorf("%w: create: %w", domain.ErrBridgeFailed, err)
		}

		metrics.IdentityBridgeTotal.WithLabelValues(provider, "conflict").Inc()
		b.logger.Debug().
			Str("provider", provider).
			Int("attempt", attempt).
			Msg("concurrent identity creation detected, retrying find")
	}

	metrics.IdentityBridgeTotal.WithLabelValues(provider, "failed").Inc()
	return nil, fmt.Errorf("%w: no stable identity after %d attempts", domain.ErrBridgeFailed, maxResolveAttempts)
}

// newIdentity holds only the provider ID and display name. Email from the
// provider is not copied: it could collide with a local identity's login key.
func (b *IdentityBridge) newIdentity(profile domain.ExternalProfile) *domain.User {
	now := b.now().UTC()
	u := &domain.User{
		Name:      strings.TrimSpace(profile.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.SetProviderID(profile.Provider, profile.ID)
	return u
}

// Link attaches the profile to userID. Linking the same provider ID twice is
// a no-op; a provider ID owned by another identity is domain.ErrUserExists.
func (b *IdentityBridge) Link(ctx context.Context, userID string, profile domain.ExternalProfile) (*domain.User, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	owner, err := b.store.FindByProviderID(ctx, profile.Provider, profile.ID)
	switch {
	case err == nil && owner.ID == userID:
		return owner, nil
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("link: %w", err)
	}

	user, err := b.store.LinkProvider(ctx, userID, profile.Provider, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}

	metrics.IdentityBridgeTotal.WithLabelValues(string(profile.Provider), "linked").Inc()
	b.logger.Info().
		Str("provider", string(profile.Provider)).
		Str("user_id", user.ID).
		Msg("provider linked to identity")
	return user, nil
}
