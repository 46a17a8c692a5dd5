package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/middleware"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit command.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the per-user API rate limit",
		Long:  "Show or set the rate in limiter notation (5-S, 100-M, 1000-H).",
	}
	cmd.AddCommand(newRatelimitShowCmd(), newRatelimitSetCmd())
	return cmd
}

func newRatelimitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"list"},
		Short:   "Show the stored rate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				c, err := database.NewRatelimitConfigRepository(db).Get(ctx)
				if err != nil {
					return err
				}
				if c == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No rate stored; the default %s applies.\n", middleware.DefaultRate)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rate: %s\n", c.Rate)
				return nil
			})
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the rate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rate = strings.ToUpper(strings.TrimSpace(rate))
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid --rate %q: %w", rate, err)
			}
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				if err := database.NewRatelimitConfigRepository(db).Set(ctx, &models.RatelimitConfig{Rate: rate}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rate limit set to %s.\n", rate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate such as 5-S, 100-M or 1000-H (required)")
	return cmd
}
