package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-notes/internal/models"
)

// ConfigSource looks up stored OIDC provider settings.
type ConfigSource interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// Provider resolves OIDC provider configuration and discovery metadata.
type Provider struct {
	repo   ConfigSource
	client *http.Client
}

// NewProvider creates a provider backed by repo.
func NewProvider(repo ConfigSource) *Provider {
	return &Provider{repo: repo, client: &http.Client{Timeout: 5 * time.Second}}
}

// GetConfig returns the stored configuration for providerName.
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	cfg, err := p.repo.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config for %s: %w", providerName, err)
	}
	return cfg, nil
}

// LoginConfig is what a browser or CLI needs to start an authorization-code login.
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// GetLoginConfig builds the login configuration for providerName. Endpoints
// come from the issuer's discovery document when reachable. A configured
// Domain overrides both, as hosted login pages often live on their own host.
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	cfg, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}

	issuer := strings.TrimRight(cfg.Issuer, "/")
	login := &LoginConfig{
		AuthorizationEndpoint: issuer + "/oauth2/authorize",
		TokenEndpoint:         issuer + "/oauth2/token",
		ClientID:              cfg.ClientID,
		RedirectURI:           cfg.RedirectURI,
		Scope:                 strings.Join(DefaultScopes, " "),
	}

	if doc, err := p.discover(ctx, issuer); err == nil {
		if doc.AuthorizationEndpoint != "" {
			login.AuthorizationEndpoint = doc.AuthorizationEndpoint
		}
		if doc.TokenEndpoint != "" {
			login.TokenEndpoint = doc.TokenEndpoint
		}
	}

	if base := cfg.LoginBase(); base != "" {
		login.AuthorizationEndpoint = base + "/oauth2/authorize"
		login.TokenEndpoint = base + "/oauth2/token"
	}

	return login, nil
}

func (p *Provider) discover(ctx context.Context, issuer string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}
	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}
