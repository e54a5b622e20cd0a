package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

// AuthService implements local signup and the local credential strategy.
type AuthService struct {
	store  ports.CredentialStore
	cost   int
	logger zerolog.Logger
	now    func() time.Time

	// dummyHash is compared against when no stored hash exists, so a
	// rejection costs one bcrypt comparison whatever its reason.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

func NewAuthService(store ports.CredentialStore, cost int, logger zerolog.Logger) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("fitness-api/no-such-identity"), cost)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build dummy password hash")
	}
	return &AuthService{
		store:     store,
		cost:      cost,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummy,
		compare:   bcrypt.CompareHashAndPassword,
	}
}

// Signup creates a local identity. The password is stored only as a bcrypt
// hash; a second signup for the same email fails with domain.ErrUserExists
// and leaves the existing record untouched.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)

	switch {
	case name == "":
		return nil, domain.Invalid("name is required")
	case email == "":
		return nil, domain.Invalid("email is required")
	case in.Password == "":
		return nil, domain.Invalid("password is required")
	}
	// ParseAddress also accepts "Name <addr>" forms; only a bare address
	// may become the login key.
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, domain.Invalid("email must be a valid email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.Invalid("password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.store.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.SignupsTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("signup: %w", err)
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	s.logger.Info().Str("user_id", created.ID).Msg("local identity created")
	return created, nil
}

// Authenticate is read-only: it looks the identity up by email and checks
// the password hash. Unknown emails are a rejection, not an error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("email and password are required")
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.burnComparison(password)
			return nil, &domain.AuthRejection{Reason: domain.RejectNoSuchUser}
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	// OAuth-only identities have no hash and can never match.
	if !user.HasPassword() {
		s.burnComparison(password)
		return nil, &domain.AuthRejection{Reason: domain.RejectBadPassword}
	}
	if s.compare([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, &domain.AuthRejection{Reason: domain.RejectBadPassword}
	}

	return user, nil
}

// burnComparison spends the same bcrypt work as a real password check.
func (s *AuthService) burnComparison(password string) {
	if len(s.dummyHash) == 0 {
		return
	}
	_ = s.compare(s.dummyHash, []byte(password))
}
