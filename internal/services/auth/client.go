package auth

import (
	"context"

	"github.com/benvon/smart-notes/internal/models"
	"golang.org/x/oauth2"
)

// DefaultScopes are requested on every login.
var DefaultScopes = []string{"openid", "email", "profile"}

// Client drives the OAuth2 authorization-code flow with PKCE.
type Client struct {
	config *oauth2.Config
}

// NewClient creates an OAuth2 client from stored provider settings and the
// endpoints resolved for them.
func NewClient(cfg *models.OIDCConfig, login *LoginConfig) *Client {
	return &Client{config: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret(),
		RedirectURL:  cfg.RedirectURI,
		Scopes:       DefaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  login.AuthorizationEndpoint,
			TokenURL: login.TokenEndpoint,
		},
	}}
}

// AuthCodeURL returns the authorization URL for state, bound to verifier
// with an S256 code challenge.
func (c *Client) AuthCodeURL(state, verifier string) string {
	return c.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// ExchangeCode trades an authorization code and its PKCE verifier for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// NewVerifierString generates a fresh PKCE code verifier.
func NewVerifierString() string {
	return oauth2.GenerateVerifier()
}
