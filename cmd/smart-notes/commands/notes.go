package commands

import (
	"fmt"
	"strings"

	"github.com/benvon/smart-notes/internal/client"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/workspace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newNotesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "List and edit notes",
	}
	cmd.AddCommand(
		newNotesListCmd(a),
		newNotesShowCmd(a),
		newNotesAddCmd(a),
		newNotesEditCmd(a),
		newNotesRmCmd(a),
	)
	return cmd
}

func newNotesListCmd(a *app) *cobra.Command {
	var search, tag, project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, optionally searching title and content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := optionalID(project)
			if err != nil {
				return err
			}
			layout := a.layout(func(s *workspace.Stores) {
				s.Notes = workspace.NoteStore(a.client, client.NoteFilter{Tag: tag, ProjectID: projectID})
			})
			if err := layout.Notes.Refresh(cmd.Context()); err != nil {
				return err
			}
			layout.SetSearch(search)

			notes := layout.VisibleNotes()
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "TITLE", "TAGS", "UPDATED")
			for _, n := range notes {
				row(tw, n.ID.String(), truncate(n.Title, 48), tagList(n.Tags), n.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only notes whose title or content contains this text")
	cmd.Flags().StringVar(&tag, "tag", "", "Only notes with this tag")
	cmd.Flags().StringVar(&project, "project", "", "Only notes in this project (id)")
	return cmd
}

func newNotesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.client.Notes.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			title := n.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(out, "%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))
			fmt.Fprintf(out, "Tags: %s  Project: %s  Updated: %s\n\n", tagList(n.Tags), optionalUUID(n.ProjectID), n.UpdatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Fprintln(out, markdown(n.Content, a.plain))
			return nil
		},
	}
}

// noteFlags are the editable fields shared by add and edit.
type noteFlags struct {
	title, content, project string
	tags                    []string
	clearProject            bool
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Title")
	cmd.Flags().StringVarP(&f.content, "content", "c", "", "Markdown content")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag, repeated or comma-separated; replaces existing tags")
	cmd.Flags().StringVar(&f.project, "project", "", "Project id")
}

// apply copies the flags the user set onto n.
func (f *noteFlags) apply(cmd *cobra.Command, n *models.Note) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		n.Title = f.title
	}
	if changed("content") {
		n.Content = f.content
	}
	if changed("tag") {
		n.Tags = tagsFromNames(f.tags)
	}
	if changed("project") {
		id, err := optionalID(f.project)
		if err != nil {
			return err
		}
		n.ProjectID = nullUUID(id)
	}
	if f.clearProject {
		n.ProjectID = uuid.NullUUID{}
	}
	return nil
}

func newNotesAddCmd(a *app) *cobra.Command {
	var f noteFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var draft models.Note
			if err := f.apply(cmd, &draft); err != nil {
				return err
			}
			layout := a.layout(nil)
			layout.NoteModal.OpenForCreate(draft)
			saved, err := layout.SaveNote(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created note %s\n", saved.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newNotesEditCmd(a *app) *cobra.Command {
	var f noteFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.client.Notes.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			layout := a.layout(nil)
			layout.NoteModal.OpenForEdit(*current)
			var applyErr error
			layout.NoteModal.Edit(func(n *models.Note) { applyErr = f.apply(cmd, n) })
			if applyErr != nil {
				layout.NoteModal.Close()
				return applyErr
			}
			saved, err := layout.SaveNote(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated note %s\n", saved.ID)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.clearProject, "no-project", false, "Remove the note from its project")
	return cmd
}

func newNotesRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return removeRecord(cmd, a.layout(nil).Notes, id, a.confirm(cmd, "Delete this note?"), "note")
		},
	}
}

// removeRecord deletes id through col and reports the outcome.
func removeRecord[T workspace.Entity[P], P any](cmd *cobra.Command, col *workspace.Collection[T, P], id uuid.UUID, confirm func() bool, noun string) error {
	deleted, err := col.Delete(cmd.Context(), id, confirm)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", noun, id)
	return nil
}

func tagsFromNames(names []string) []models.Tag {
	names = models.NormalizeTagNames(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, models.Tag{Name: name})
	}
	return tags
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
