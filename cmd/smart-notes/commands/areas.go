package commands

import (
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/spf13/cobra"
)

func newAreasCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "areas",
		Aliases: []string{"area"},
		Short:   "List and edit areas of responsibility",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List areas with their project counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout := a.layout(nil)
			if err := layout.RefreshAll(cmd.Context()); err != nil {
				return err
			}
			areas := layout.Areas.Items()
			if len(areas) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No areas")
				return nil
			}
			projects := make(map[string]int)
			for _, p := range layout.Projects.Items() {
				if p.AreaID.Valid {
					projects[p.AreaID.UUID.String()]++
				}
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "PROJECTS", "DESCRIPTION")
			for _, ar := range areas {
				row(tw, ar.ID.String(), ar.Name, fmt.Sprint(projects[ar.ID.String()]), truncate(ar.Description, 40))
			}
			return tw.Flush()
		},
	}

	var name, description string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			layout := a.layout(nil)
			layout.AreaModal.OpenForCreate(models.Area{Name: name, Description: description})
			saved, err := layout.SaveArea(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created area %s\n", saved.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&name, "name", "n", "", "Area name (required)")
	add.Flags().StringVar(&description, "description", "", "Description")

	var newName, newDescription string
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename or describe an area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.client.Areas.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			layout := a.layout(nil)
			layout.AreaModal.OpenForEdit(*current)
			layout.AreaModal.Edit(func(ar *models.Area) {
				if cmd.Flags().Changed("name") {
					ar.Name = newName
				}
				if cmd.Flags().Changed("description") {
					ar.Description = newDescription
				}
			})
			saved, err := layout.SaveArea(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated area %s\n", saved.ID)
			return nil
		},
	}
	edit.Flags().StringVarP(&newName, "name", "n", "", "New name")
	edit.Flags().StringVar(&newDescription, "description", "", "New description")

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an area; its projects are kept without an area",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return removeRecord(cmd, a.layout(nil).Areas, id, a.confirm(cmd, "Delete this area?"), "area")
		},
	}

	cmd.AddCommand(list, add, edit, rm)
	return cmd
}
