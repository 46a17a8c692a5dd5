package commands

import (
	"fmt"
	"time"

	"github.com/benvon/smart-notes/internal/client"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/workspace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and edit tasks",
	}
	cmd.AddCommand(
		newTasksListCmd(a),
		newTasksAddCmd(a),
		newTasksEditCmd(a),
		newTasksDoneCmd(a),
		newTasksRmCmd(a),
	)
	return cmd
}

func newTasksListCmd(a *app) *cobra.Command {
	var view, status, tag, project, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in a view (today, upcoming, next, inbox)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := client.TaskFilter{
				Type:   models.TaskView(view),
				Status: models.TaskStatus(status),
				Tag:    tag,
			}
			if view != "" && !filter.Type.Valid() {
				return fmt.Errorf("unknown view %q", view)
			}
			if status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			var err error
			if filter.ProjectID, err = optionalID(project); err != nil {
				return err
			}

			layout := a.layout(func(s *workspace.Stores) {
				s.Tasks = workspace.TaskStore(a.client, filter)
			})
			if err := layout.Tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			tasks := workspace.SearchTasks(layout.Tasks.Items(), search)
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			now := a.now()
			tw := newTable(cmd.OutOrStdout(), "", "ID", "NAME", "DUE", "PRIORITY", "TAGS")
			for _, t := range tasks {
				priority := string(t.Priority)
				if priority == "" {
					priority = "-"
				}
				row(tw, statusBox(t.Status), t.ID.String(), truncate(t.Name, 48), dueColumn(t, now), priority, tagList(t.Tags))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "today, upcoming, next or inbox")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status")
	cmd.Flags().StringVar(&tag, "tag", "", "Only tasks with this tag")
	cmd.Flags().StringVar(&project, "project", "", "Only tasks in this project (id)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only tasks whose name or note contains this text")
	return cmd
}

type taskFlags struct {
	name, note, status, priority, due, project string
	tags                                       []string
	clearDue, clearProject                     bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Task name")
	cmd.Flags().StringVar(&f.note, "note", "", "Free-form note")
	cmd.Flags().StringVar(&f.status, "status", "", "not_started, in_progress, waiting, done or archived")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag, repeated or comma-separated; replaces existing tags")
	cmd.Flags().StringVar(&f.project, "project", "", "Project id")
}

func (f *taskFlags) apply(cmd *cobra.Command, t *models.Task, now time.Time) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		t.Name = f.name
	}
	if changed("note") {
		t.Note = f.note
	}
	if changed("status") {
		s := models.TaskStatus(f.status)
		if !s.Valid() {
			return fmt.Errorf("unknown status %q", f.status)
		}
		t.SetStatus(s, now)
	}
	if changed("priority") {
		t.Priority = models.TaskPriority(f.priority)
	}
	if changed("due") {
		due, err := parseDue(f.due, now)
		if err != nil {
			return err
		}
		t.DueDate = &due
	}
	if f.clearDue {
		t.DueDate = nil
	}
	if changed("tag") {
		t.Tags = tagsFromNames(f.tags)
	}
	if changed("project") {
		id, err := optionalID(f.project)
		if err != nil {
			return err
		}
		t.ProjectID = nullUUID(id)
	}
	if f.clearProject {
		t.ProjectID = uuid.NullUUID{}
	}
	return nil
}

// parseDue accepts a calendar date or one of the words today and tomorrow.
func parseDue(raw string, now time.Time) (time.Time, error) {
	today := models.DateOnly(now.UTC())
	switch raw {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}

func newTasksAddCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.name == "" {
				return fmt.Errorf("--name is required")
			}
			draft := models.Task{Status: models.TaskStatusNotStarted}
			if err := f.apply(cmd, &draft, a.now()); err != nil {
				return err
			}
			layout := a.layout(nil)
			layout.TaskModal.OpenForCreate(draft)
			saved, err := layout.SaveTask(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", saved.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// editTask loads id into the task modal, lets edit change it and saves it.
func editTask(cmd *cobra.Command, a *app, rawID string, edit func(*models.Task) error) (models.Task, error) {
	id, err := parseID(rawID)
	if err != nil {
		return models.Task{}, err
	}
	current, err := a.client.Tasks.Get(cmd.Context(), id)
	if err != nil {
		return models.Task{}, err
	}
	layout := a.layout(nil)
	layout.TaskModal.OpenForEdit(*current)
	var editErr error
	layout.TaskModal.Edit(func(t *models.Task) { editErr = edit(t) })
	if editErr != nil {
		layout.TaskModal.Close()
		return models.Task{}, editErr
	}
	return layout.SaveTask(cmd.Context())
}

func newTasksEditCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := editTask(cmd, a, args[0], func(t *models.Task) error {
				return f.apply(cmd, t, a.now())
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", saved.ID)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.clearDue, "no-due", false, "Remove the due date")
	cmd.Flags().BoolVar(&f.clearProject, "no-project", false, "Remove the task from its project")
	return cmd
}

func newTasksDoneCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := models.TaskStatusDone
			if undo {
				status = models.TaskStatusNotStarted
			}
			saved, err := editTask(cmd, a, args[0], func(t *models.Task) error {
				t.SetStatus(status, a.now())
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", statusBox(saved.Status), saved.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Reopen the task instead")
	return cmd
}

func newTasksRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return removeRecord(cmd, a.layout(nil).Tasks, id, a.confirm(cmd, "Delete this task?"), "task")
		},
	}
}
