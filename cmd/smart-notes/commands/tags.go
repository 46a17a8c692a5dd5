package commands

import (
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/spf13/cobra"
)

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "List, rename and delete tags",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tags, err := a.client.TagsResource().Tags(cmd.Context())
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME")
			for _, t := range tags {
				row(tw, t.ID.String(), t.Name)
			}
			return tw.Flush()
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show how often each tag is used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.client.Tags.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(s.Usage) == 0 {
				fmt.Fprintln(out, "No tag statistics yet")
				return nil
			}
			tw := newTable(out, "TAG", "TOTAL", "NOTES", "TASKS", "OPEN")
			for _, name := range s.Ranked() {
				st := s.Usage[name]
				row(tw, "#"+name, fmt.Sprint(st.Total), fmt.Sprint(st.Notes), fmt.Sprint(st.Tasks), fmt.Sprint(st.OpenTasks))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if s.Tainted {
				fmt.Fprintln(out, "\n(statistics are being recalculated)")
			}
			return nil
		},
	}

	var name string
	rename := &cobra.Command{
		Use:   "rename <id>",
		Short: "Rename a tag everywhere it is used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			layout := a.layout(nil)
			layout.TagModal.OpenForEdit(models.Tag{ID: id, Name: name})
			saved, err := layout.SaveTag(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed tag to #%s\n", saved.Name)
			return nil
		},
	}
	rename.Flags().StringVarP(&name, "name", "n", "", "New name (required)")

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a tag and detach it from notes and tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return removeRecord(cmd, a.layout(nil).Tags, id, a.confirm(cmd, "Delete this tag?"), "tag")
		},
	}

	cmd.AddCommand(list, stats, rename, rm)
	return cmd
}
