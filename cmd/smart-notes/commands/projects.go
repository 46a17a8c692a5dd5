package commands

import (
	"fmt"
	"strconv"

	"github.com/benvon/smart-notes/internal/client"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/workspace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and edit projects",
	}
	cmd.AddCommand(newProjectsListCmd(a), newProjectsAddCmd(a), newProjectsEditCmd(a), newProjectsRmCmd(a))
	return cmd
}

func newProjectsListCmd(a *app) *cobra.Command {
	var active, area string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch active {
			case "all", "true", "false":
			default:
				return fmt.Errorf("--active must be all, true or false")
			}
			areaID, err := optionalID(area)
			if err != nil {
				return err
			}
			layout := a.layout(func(s *workspace.Stores) {
				s.Projects = workspace.ProjectStore(a.client, client.ProjectFilter{Active: active, AreaID: areaID})
			})
			if err := layout.Projects.Refresh(cmd.Context()); err != nil {
				return err
			}
			projects := layout.Projects.Items()
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "ACTIVE", "PINNED", "AREA")
			for _, p := range projects {
				row(tw, p.ID.String(), truncate(p.Name, 40), strconv.FormatBool(p.Active), strconv.FormatBool(p.PinToSidebar), optionalUUID(p.AreaID))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&active, "active", "all", "all, true or false")
	cmd.Flags().StringVar(&area, "area", "", "Only projects in this area (id)")
	return cmd
}

type projectFlags struct {
	name, description, area string
	active, pin, clearArea  bool
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Project name")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.area, "area", "", "Area id")
	cmd.Flags().BoolVar(&f.active, "active", true, "Whether the project is active")
	cmd.Flags().BoolVar(&f.pin, "pin", false, "Pin the project to the sidebar")
}

func (f *projectFlags) apply(cmd *cobra.Command, p *models.Project) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		p.Name = f.name
	}
	if changed("description") {
		p.Description = f.description
	}
	if changed("active") {
		p.Active = f.active
	}
	if changed("pin") {
		p.PinToSidebar = f.pin
	}
	if changed("area") {
		id, err := optionalID(f.area)
		if err != nil {
			return err
		}
		p.AreaID = nullUUID(id)
	}
	if f.clearArea {
		p.AreaID = uuid.NullUUID{}
	}
	return nil
}

func newProjectsAddCmd(a *app) *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.name == "" {
				return fmt.Errorf("--name is required")
			}
			draft := models.Project{Active: true}
			if err := f.apply(cmd, &draft); err != nil {
				return err
			}
			layout := a.layout(nil)
			layout.ProjectModal.OpenForCreate(draft)
			saved, err := layout.SaveProject(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", saved.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newProjectsEditCmd(a *app) *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a project's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.client.Projects.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, current); err != nil {
				return err
			}
			layout := a.layout(nil)
			layout.ProjectModal.OpenForEdit(*current)
			saved, err := layout.SaveProject(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s\n", saved.ID)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.clearArea, "no-area", false, "Remove the project from its area")
	return cmd
}

func newProjectsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a project; its notes and tasks are kept without a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return removeRecord(cmd, a.layout(nil).Projects, id, a.confirm(cmd, "Delete this project?"), "project")
		},
	}
}
