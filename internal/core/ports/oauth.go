package ports

import (
	"context"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// OAuthProvider runs the authorization-code flow against one provider. It
// returns profile facts only; identity decisions belong to IdentityBridge.
type OAuthProvider interface {
	Name() domain.Provider
	// AuthCodeURL builds the consent URL. verifier is the PKCE code verifier.
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*domain.ExternalProfile, error)
}

// ProviderRegistry looks up configured providers by route parameter.
type ProviderRegistry interface {
	Get(name string) (OAuthProvider, error)
}

// OAuthState issues and checks the state value that ties a provider callback
// to the request that started the flow.
type OAuthState interface {
	Issue(provider domain.Provider) (string, error)
	// Validate fails with domain.ErrInvalidOAuthState.
	Validate(state string, provider domain.Provider) error
}
