package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/services/auth"
	"github.com/spf13/cobra"
)

// NewTokensCmd creates the tokens command for personal API tokens.
func NewTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage personal API tokens",
		Long:  "API tokens authenticate the command line client. Only a bcrypt hash is stored, so a token is shown once at creation.",
	}
	cmd.AddCommand(newTokensCreateCmd(), newTokensListCmd(), newTokensRevokeCmd())
	return cmd
}

// userByEmail looks the user up, creating it when create is set.
func userByEmail(ctx context.Context, users *database.UserRepository, email string, create bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("--email is required")
	}
	u, err := users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, database.ErrNotFound) || !create {
		return nil, err
	}
	u = &models.User{Email: email}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func newTokensCreateCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a token for a user, creating the user if needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				u, err := userByEmail(ctx, database.NewUserRepository(db), email, true)
				if err != nil {
					return err
				}
				raw, token, err := auth.NewTokenService(database.NewAPITokenRepository(db)).Issue(ctx, u.ID, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created token %s for %s.\n", token.Prefix, u.Email)
				fmt.Fprintf(out, "Store it now, it cannot be shown again:\n\n  %s\n", raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Owner's email (required)")
	cmd.Flags().StringVar(&name, "name", "cli", "Label for the token")
	return cmd
}

func newTokensListCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				u, err := userByEmail(ctx, database.NewUserRepository(db), email, false)
				if err != nil {
					return err
				}
				tokens, err := auth.NewTokenService(database.NewAPITokenRepository(db)).List(ctx, u.ID)
				if err != nil {
					return err
				}
				if len(tokens) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No tokens for %s\n", u.Email)
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PREFIX\tNAME\tCREATED\tLAST USED")
				for _, t := range tokens {
					lastUsed := "never"
					if t.LastUsedAt != nil {
						lastUsed = t.LastUsedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Prefix, t.Name, t.CreatedAt.Format(time.RFC3339), lastUsed)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Owner's email (required)")
	return cmd
}

func newTokensRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <prefix-or-token>",
		Short: "Revoke a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				if err := auth.NewTokenService(database.NewAPITokenRepository(db)).Revoke(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token revoked.")
				return nil
			})
		},
	}
}
