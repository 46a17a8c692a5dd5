package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account. ProviderID is the OIDC subject once the user has
// logged in through the identity provider; token-only accounts have none.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	ProviderID    *string    `json:"provider_id,omitempty"`
	Name          *string    `json:"name,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DisplayName is the user's name, falling back to their email.
func (u *User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	return u.Email
}

// OIDCConfig is one identity provider registered by the operator. Domain
// overrides where the login endpoints live, e.g. a Cognito hosted UI.
type OIDCConfig struct {
	ID           uuid.UUID `json:"id"`
	Provider     string    `json:"provider"`
	Issuer       string    `json:"issuer"`
	Domain       *string   `json:"domain,omitempty"`
	ClientID     string    `json:"client_id"`
	ClientSecret *string   `json:"client_secret,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	JWKSUrl      *string   `json:"jwks_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// KeySetURL returns the stored JWKS URL or "" when none is set.
func (c *OIDCConfig) KeySetURL() string {
	if c.JWKSUrl == nil {
		return ""
	}
	return strings.TrimSpace(*c.JWKSUrl)
}

// Secret returns the client secret, empty for public clients.
func (c *OIDCConfig) Secret() string {
	if c.ClientSecret == nil {
		return ""
	}
	return *c.ClientSecret
}

// LoginBase returns the scheme-qualified custom login domain, or "" when the
// issuer's own endpoints apply.
func (c *OIDCConfig) LoginBase() string {
	if c.Domain == nil {
		return ""
	}
	base := strings.TrimRight(strings.TrimSpace(*c.Domain), "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "https://") && !strings.HasPrefix(base, "http://") {
		base = "https://" + base
	}
	return base
}
