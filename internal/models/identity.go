package models

import (
	"strings"
	"time"
)

// Identity is the verified subset of an OIDC ID token used to resolve a user.
type Identity struct {
	Subject       string
	Issuer        string
	Audience      []string
	Email         string
	EmailVerified bool
	Name          string
	ExpiresAt     time.Time
	IssuedAt      time.Time
}

// NormalizedEmail returns the email lowercased with surrounding space removed.
func (i *Identity) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(i.Email))
}
