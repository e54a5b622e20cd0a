package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

const googleIssuer = "https://accounts.google.com"

// GoogleConfig carries the registered OAuth client for Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Google implements OAuth + OIDC authentication against Google.
// It returns profile facts only; no identity or session decisions are made here.
type Google struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogle initializes the provider using OIDC discovery.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newGoogle(cfg, provider.Endpoint(), verifier), nil
}

func newGoogle(cfg GoogleConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *Google {
	return &Google{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
	}
}

func (g *Google) Name() domain.Provider { return domain.ProviderGoogle }

// AuthCodeURL builds the consent URL with an S256 PKCE challenge.
func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the code for tokens and reads the verified id_token claims.
func (g *Google) Exchange(ctx context.Context, code, verifier string) (*domain.ExternalProfile, error) {
	token, err := g.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google did not return id_token")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("google id_token missing subject")
	}

	return &domain.ExternalProfile{
		Provider: domain.ProviderGoogle,
		ID:       claims.Subject,
		Name:     strings.TrimSpace(claims.Name),
		Email:    claims.Email,
	}, nil
}
