package ports

import (
	"context"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

// SignupInput carries a local signup request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService covers local signup and the local credential strategy.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	// Authenticate returns the identity for a matching email/password pair or
	// a *domain.AuthRejection. It never creates identities.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}
