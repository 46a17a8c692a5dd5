package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/spf13/cobra"
)

// discoveryDocument holds the fields checked from an OIDC discovery response.
type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check a stored OIDC provider against its live endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				c, err := database.NewOIDCConfigRepository(db).GetByProvider(ctx, provider)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				client := &http.Client{Timeout: timeout}

				fmt.Fprintf(out, "Testing OIDC configuration for provider: %s\n", provider)
				doc, err := fetchDiscovery(ctx, client, c.Issuer)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ Discovery endpoint is accessible")
				if strings.TrimRight(doc.Issuer, "/") != c.Issuer {
					fmt.Fprintf(out, "! Discovery issuer %q differs from stored issuer %q\n", doc.Issuer, c.Issuer)
				}

				jwksURL := c.KeySetURL()
				if jwksURL == "" {
					jwksURL = doc.JWKSURI
				}
				if jwksURL == "" {
					return fmt.Errorf("no JWKS URL stored or advertised")
				}
				keys, err := jwk.Fetch(ctx, jwksURL, jwk.WithHTTPClient(client))
				if err != nil {
					return fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
				}
				if keys.Len() == 0 {
					return fmt.Errorf("JWKS at %s contains no keys", jwksURL)
				}
				fmt.Fprintf(out, "✓ JWKS endpoint returned %d keys\n", keys.Len())

				fmt.Fprintln(out, "\n✓ OIDC configuration test passed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout per request")
	return cmd
}

func fetchDiscovery(ctx context.Context, client *http.Client, issuer string) (*discoveryDocument, error) {
	url := issuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach discovery endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status: %d", resp.StatusCode)
	}
	var doc discoveryDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}
