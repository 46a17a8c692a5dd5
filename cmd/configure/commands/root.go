package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/benvon/smart-notes/internal/config"
	"github.com/benvon/smart-notes/internal/database"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the smart-notes-configure command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "smart-notes-configure",
		Short:         "Administration tool for the Smart Notes server",
		Long:          "Manage OIDC providers, CORS, rate limits, API tokens and schema migrations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		NewOIDCCmd(),
		NewListCmd(),
		NewTestCmd(),
		NewCorsCmd(),
		NewRatelimitCmd(),
		NewTokensCmd(),
		NewMigrateCmd(),
	)
	return root
}

var errDatabaseUnavailable = errors.New("database unavailable")

// PrintError reports a failed command on w with a hint for the common
// misconfigurations.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	switch {
	case errors.Is(err, errDatabaseUnavailable):
		fmt.Fprintln(w, "Hint: check DATABASE_URL (postgres://... or sqlite://path).")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted.")
	}
}

// withDB opens the database named by DATABASE_URL for the duration of fn.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", errDatabaseUnavailable, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, db)
}
