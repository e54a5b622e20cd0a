package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

const (
	stateIssuer = "fitness-api"
	// StateTTL bounds how long a provider round trip may take.
	StateTTL = 5 * time.Minute
)

// StateClaims bind an OAuth state value to the provider it was issued for.
type StateClaims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// StateIssuer signs and verifies OAuth state values as HS256 JWTs.
type StateIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewStateIssuer(secret string) (*StateIssuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("oauth state secret must be at least 32 bytes")
	}
	return &StateIssuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed state for provider.
func (s *StateIssuer) Issue(provider domain.Provider) (string, error) {
	now := s.now()
	claims := StateClaims{
		Provider: string(provider),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and that the state was issued for provider.
// Any failure is domain.ErrInvalidOAuthState.
func (s *StateIssuer) Verify(state string, provider domain.Provider) (*StateClaims, error) {
	if state == "" {
		return nil, domain.ErrInvalidOAuthState
	}

	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOAuthState, err)
	}
	if claims.Provider != string(provider) {
		return nil, fmt.Errorf("%w: issued for %q", domain.ErrInvalidOAuthState, claims.Provider)
	}
	return claims, nil
}

// Validate is Verify without the claims.
func (s *StateIssuer) Validate(state string, provider domain.Provider) error {
	_, err := s.Verify(state, provider)
	return err
}
