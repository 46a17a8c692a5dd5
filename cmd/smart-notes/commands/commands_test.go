package commands

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/benvon/smart-notes/internal/testutil/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

type cli struct {
	t      *testing.T
	server string
	token  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := testserver.New(t)
	_, token := srv.NewUser(t)
	return &cli{t: t, server: srv.URL, token: token}
}

// run executes args, feeding stdin to prompts.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--server", c.server, "--token", c.token, "--plain"}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) create(args ...string) string {
	c.t.Helper()
	id := idPattern.FindString(c.mustRun(args...))
	require.NotEmpty(c.t, id)
	return id
}

func TestNotesCommands(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	id := c.create("notes", "add", "--title", "Groceries", "--content", "# Milk\n\nand *eggs*", "--tag", "home,errands")
	c.create("notes", "add", "--title", "Standup", "--content", "blockers")

	out := c.mustRun("notes", "list", "--search", "eggs")
	assert.Contains(t, out, "Groceries")
	assert.NotContains(t, out, "Standup")

	out = c.mustRun("notes", "list", "--tag", "home")
	assert.Contains(t, out, "#home #errands")

	c.mustRun("notes", "edit", id, "--title", "Shopping")
	out = c.mustRun("notes", "show", id)
	assert.Contains(t, out, "Shopping\n========")
	assert.Contains(t, out, "and *eggs*")

	out, err := c.run("n\n", "notes", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	out, err = c.run("y\n", "notes", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted note "+id)

	_, err = c.run("", "notes", "show", id)
	assert.Error(t, err)
	_, err = c.run("", "notes", "show", "not-an-id")
	assert.Error(t, err)
}

func TestTasksCommands(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	_, err := c.run("", "tasks", "add")
	assert.Error(t, err, "name is required")
	_, err = c.run("", "tasks", "add", "--name", "x", "--due", "next week")
	assert.Error(t, err)

	id := c.create("tasks", "add", "--name", "File taxes", "--due", "tomorrow", "--priority", "high", "--tag", "admin")
	out := c.mustRun("tasks", "list")
	assert.Contains(t, out, "File taxes")
	assert.Contains(t, out, "TOMORROW")
	assert.Contains(t, out, "[ ]")

	out = c.mustRun("tasks", "done", id)
	assert.Contains(t, out, "[x] File taxes")

	out = c.mustRun("tasks", "list", "--status", "done")
	assert.Contains(t, out, "File taxes")

	c.mustRun("tasks", "edit", id, "--no-due", "--name", "File the taxes")
	out = c.mustRun("tasks", "list", "--search", "the taxes")
	assert.Contains(t, out, "File the taxes")
	assert.NotContains(t, out, "TOMORROW")

	_, err = c.run("", "tasks", "list", "--view", "someday")
	assert.Error(t, err)

	out = c.mustRun("--yes", "tasks", "rm", id)
	assert.Contains(t, out, "Deleted task")
}

func TestProjectsAndAreasCommands(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	area := c.create("areas", "add", "--name", "Health")
	project := c.create("projects", "add", "--name", "Marathon", "--area", area, "--pin")
	c.create("projects", "add", "--name", "Old", "--active=false")

	out := c.mustRun("projects", "list", "--active", "true")
	assert.Contains(t, out, "Marathon")
	assert.NotContains(t, out, "Old")

	out = c.mustRun("areas", "list")
	assert.Regexp(t, `Health\s+1`, out)

	c.mustRun("projects", "edit", project, "--no-area")
	out = c.mustRun("projects", "list", "--area", area)
	assert.Contains(t, out, "No projects")

	c.mustRun("areas", "edit", area, "--name", "Fitness")
	out = c.mustRun("areas", "list")
	assert.Contains(t, out, "Fitness")

	out = c.mustRun("--yes", "areas", "rm", area)
	assert.Contains(t, out, "Deleted area")
}

func TestTagsCommands(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	c.create("notes", "add", "--title", "a", "--tag", "focus")
	out := c.mustRun("tags", "list")
	assert.Contains(t, out, "focus")

	id := idPattern.FindString(out)
	require.NotEmpty(t, id)
	c.mustRun("tags", "rename", id, "--name", "deep-work")
	out = c.mustRun("notes", "list")
	assert.Contains(t, out, "#deep-work")

	c.mustRun("tags", "stats")

	c.mustRun("--yes", "tags", "rm", id)
	out = c.mustRun("tags", "list")
	assert.Contains(t, out, "No tags")
}

func TestWhoami(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out := c.mustRun("whoami")
	assert.Contains(t, out, "@example.com")

	c.token = "nope"
	_, err := c.run("", "whoami")
	assert.Error(t, err)
}
