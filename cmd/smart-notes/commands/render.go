package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/workspace"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
)

const wrapWidth = 80

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
}

// markdown renders content for the terminal, falling back to the raw text
// when rendering fails or plain output was asked for.
func markdown(content string, plain bool) string {
	if plain || strings.TrimSpace(content) == "" {
		return content
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

func tagList(tags []models.Tag) string {
	names := models.TagNames(tags)
	if len(names) == 0 {
		return "-"
	}
	return "#" + strings.Join(names, " #")
}

func optionalUUID(id uuid.NullUUID) string {
	if !id.Valid {
		return "-"
	}
	return id.UUID.String()
}

// dueColumn shows a task's due label, marking overdue dates with "!".
func dueColumn(t models.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	label, urgency := workspace.DueLabel(*t.DueDate, now)
	if urgency == workspace.UrgencyOverdue {
		return "!" + label
	}
	return label
}

func statusBox(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusDone:
		return "[x]"
	case models.TaskStatusInProgress:
		return "[~]"
	case models.TaskStatusWaiting:
		return "[w]"
	case models.TaskStatusArchived:
		return "[-]"
	}
	return "[ ]"
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
