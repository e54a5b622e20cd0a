package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0"

// FacebookConfig carries the registered Facebook app. Endpoint and GraphURL
// default to Facebook's production hosts.
type FacebookConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	GraphURL     string
}

// Facebook implements the OAuth code flow against Facebook Login and reads
// the profile from the Graph API.
type Facebook struct {
	oauthConfig *oauth2.Config
	graphURL    string
}

func NewFacebook(cfg FacebookConfig) (*Facebook, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("facebook oauth config missing required fields")
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = facebook.Endpoint
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = facebookGraphURL
	}

	return &Facebook{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"public_profile", "email"},
		},
		graphURL: cfg.GraphURL,
	}, nil
}

func (f *Facebook) Name() domain.Provider { return domain.ProviderFacebook }

func (f *Facebook) AuthCodeURL(state, verifier string) string {
	return f.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

type facebookProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (f *Facebook) Exchange(ctx context.Context, code, verifier string) (*domain.ExternalProfile, error) {
	token, err := f.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("facebook token exchange: %w", err)
	}

	q := url.Values{}
	q.Set("fields", "id,name,email")
	q.Set("appsecret_proof", f.appSecretProof(token.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("facebook profile request: %w", err)
	}

	resp, err := f.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook profile: %w", err)
	}
	defer resp.Body.Close()

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("facebook profile decode: %w", err)
	}
	if profile.Error != nil {
		return nil, fmt.Errorf("facebook profile: %s (%s)", profile.Error.Message, profile.Error.Type)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook profile: unexpected status %d", resp.StatusCode)
	}
	if profile.ID == "" {
		return nil, errors.New("facebook profile missing id")
	}

	return &domain.ExternalProfile{
		Provider: domain.ProviderFacebook,
		ID:       profile.ID,
		Name:     profile.Name,
		Email:    profile.Email,
	}, nil
}

// appSecretProof signs the access token with the app secret as Graph API
// calls from a server are expected to.
func (f *Facebook) appSecretProof(accessToken string) string {
	mac := hmac.New(sha256.New, []byte(f.oauthConfig.ClientSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}
