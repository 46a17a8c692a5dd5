package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow changes made from other clients",
		Long:  "Keeps a local copy of every list and refreshes it as change events arrive, printing each event and the new totals. Stops on Ctrl-C.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			layout := a.layout(nil)
			if err := layout.RefreshAll(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			totals := func() {
				fmt.Fprintf(out, "  %d notes, %d tasks, %d projects, %d areas, %d tags\n",
					len(layout.Notes.Items()), len(layout.Tasks.Items()), len(layout.Projects.Items()),
					len(layout.Areas.Items()), len(layout.Tags.Items()))
			}
			fmt.Fprintln(out, "Watching for changes")
			totals()

			err := layout.Watch(ctx, a.client, func(ev models.ChangeEvent) {
				fmt.Fprintf(out, "%s %s %s %s\n", ev.At.Local().Format("15:04:05"), ev.Type, ev.Entity, ev.ID)
				totals()
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
