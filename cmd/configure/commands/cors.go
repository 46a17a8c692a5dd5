package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors command. The server reloads the stored
// configuration every minute.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
	}
	cmd.AddCommand(newCorsShowCmd(), newCorsSetCmd())
	return cmd
}

func newCorsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"list"},
		Short:   "Show the stored CORS configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				c, err := database.NewCorsConfigRepository(db).Get(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c == nil {
					fmt.Fprintln(out, "No CORS configuration stored; FRONTEND_URL is used. Run 'cors set' to add one.")
					return nil
				}
				fmt.Fprintln(out, "CORS configuration:")
				for _, origin := range c.Origins() {
					fmt.Fprintf(out, "  Origin: %s\n", origin)
				}
				fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
				fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
				return nil
			})
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins []string
	var allowCreds bool
	var maxAge int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the allowed origins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cleaned := make([]string, 0, len(origins))
			for _, o := range origins {
				if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
					cleaned = append(cleaned, o)
				}
			}
			if len(cleaned) == 0 {
				return fmt.Errorf("--origins is required")
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age must not be negative")
			}
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				c := &models.CorsConfig{
					AllowedOrigins:   strings.Join(cleaned, ","),
					AllowCredentials: allowCreds,
					MaxAge:           maxAge,
				}
				if err := database.NewCorsConfigRepository(db).Set(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "CORS configuration updated (%d origins).\n", len(cleaned))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&origins, "origins", nil, "Allowed origins, comma-separated or repeated (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age in seconds")
	return cmd
}
