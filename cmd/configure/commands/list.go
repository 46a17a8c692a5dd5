package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd prints every registered OIDC provider.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				configs, err := database.NewOIDCConfigRepository(db).GetAll(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(configs) == 0 {
					fmt.Fprintln(out, "No OIDC providers configured. Add one with 'oidc <provider>'.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PROVIDER\tISSUER\tCLIENT ID\tLOGIN DOMAIN\tJWKS\tUPDATED")
				for _, c := range configs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						c.Provider, c.Issuer, c.ClientID,
						orDash(c.LoginBase()), orDash(c.KeySetURL()),
						c.UpdatedAt.Format("2006-01-02"),
					)
				}
				return tw.Flush()
			})
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
