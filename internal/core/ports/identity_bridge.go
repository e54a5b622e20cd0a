package ports

import (
	"context"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// BridgeOutcome says how FindOrCreate resolved a provider identity.
type BridgeOutcome string

const (
	BridgeFound   BridgeOutcome = "found"
	BridgeCreated BridgeOutcome = "created"
)

// BridgeResult is the resolved identity for an external profile.
type BridgeResult struct {
	User    *domain.User
	Outcome BridgeOutcome
}

// IdentityBridge exchanges provider assertions for local identities.
type IdentityBridge interface {
	// FindOrCreate returns the single identity bound to the profile's provider
	// ID, creating it when absent. Failures wrap domain.ErrBridgeFailed.
	FindOrCreate(ctx context.Context, profile domain.ExternalProfile) (*BridgeResult, error)
	// Link attaches the profile's provider ID to an existing identity.
	Link(ctx context.Context, userID string, profile domain.ExternalProfile) (*domain.User, error)
}
