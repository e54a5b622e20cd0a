package domain

import (
	"strings"
	"time"
)

// Provider names an external identity provider a user can sign in with.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// Login methods recorded on sessions and login events.
const (
	MethodLocal = "local"
)

// Providers lists every supported external provider.
var Providers = []Provider{ProviderGoogle, ProviderFacebook}

// ParseProvider maps a route parameter to a known provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", ErrUnknownProvider
}

// User is the identity record. Email + PasswordHash back local login; the
// provider IDs back OAuth login. Any combination may be present.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"google_id,omitempty"`
	FacebookID   string    `json:"facebook_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the user can sign in with local credentials.
func (u *User) HasPassword() bool {
	return u.Email != "" && u.PasswordHash != ""
}

// ProviderID returns the ID linked for p, or "" when none is linked.
func (u *User) ProviderID(p Provider) string {
	switch p {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderFacebook:
		return u.FacebookID
	}
	return ""
}

// SetProviderID links id for p on the in-memory record.
func (u *User) SetProviderID(p Provider, id string) {
	switch p {
	case ProviderGoogle:
		u.GoogleID = id
	case ProviderFacebook:
		u.FacebookID = id
	}
}

// LoginMethods lists the ways this identity can currently authenticate.
func (u *User) LoginMethods() []string {
	methods := make([]string, 0, 1+len(Providers))
	if u.HasPassword() {
		methods = append(methods, MethodLocal)
	}
	for _, p := range Providers {
		if u.ProviderID(p) != "" {
			methods = append(methods, string(p))
		}
	}
	return methods
}

// NormalizeEmail is the canonical form used as the login key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExternalProfile is what an OAuth provider asserts about the signed-in user.
// Only Provider and ID take part in identity resolution.
type ExternalProfile struct {
	Provider Provider
	ID       string
	Name     string
	Email    string
}

// Validate checks the fields identity resolution depends on.
func (p ExternalProfile) Validate() error {
	if _, err := ParseProvider(string(p.Provider)); err != nil {
		return err
	}
	if strings.TrimSpace(p.ID) == "" {
		return ErrValidation
	}
	return nil
}
