package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/spf13/cobra"
)

// NewOIDCCmd creates the command that stores an OIDC provider.
func NewOIDCCmd() *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI, jwksURL string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure an OIDC provider",
		Long:  "Create or replace an OIDC provider used for login and bearer token verification (e.g. 'cognito', 'okta').",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildOIDCConfig(args[0], issuer, domain, clientID, clientSecret, redirectURI, jwksURL)
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				created, err := database.NewOIDCConfigRepository(db).Upsert(ctx, c)
				if err != nil {
					return err
				}
				verb := "Updated"
				if created {
					verb = "Created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s OIDC configuration for provider: %s\n", verb, c.Provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "OAuth2 domain hosting the authorize/token endpoints (optional)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (defaults to <issuer>/.well-known/jwks.json)")

	return cmd
}

func buildOIDCConfig(provider, issuer, domain, clientID, clientSecret, redirectURI, jwksURL string) (*models.OIDCConfig, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}
	issuer = strings.TrimRight(strings.TrimSpace(issuer), "/")
	if issuer == "" || clientID == "" || redirectURI == "" {
		return nil, fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri")
	}
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	c := &models.OIDCConfig{
		Provider:    provider,
		Issuer:      issuer,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		JWKSUrl:     &jwksURL,
	}
	if domain != "" {
		c.Domain = &domain
	}
	if clientSecret != "" {
		c.ClientSecret = &clientSecret
	}
	return c, nil
}
