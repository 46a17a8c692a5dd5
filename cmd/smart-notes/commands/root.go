// Package commands implements the smart-notes command line client.
package commands

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-notes/internal/client"
	"github.com/benvon/smart-notes/internal/config"
	"github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/workspace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by every command of one invocation.
type app struct {
	server string
	token  string
	debug  bool
	yes    bool
	plain  bool

	client *client.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewRootCmd assembles the smart-notes command tree.
func NewRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:           "smart-notes",
		Short:         "Notes, tasks and projects from the terminal",
		Long:          "smart-notes talks to a Smart Notes server. SMART_NOTES_URL and SMART_NOTES_TOKEN (or a .env file) supply the defaults for --server and --token.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync(a.log)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", "", "Server URL (default $SMART_NOTES_URL)")
	flags.StringVar(&a.token, "token", "", "API token (default $SMART_NOTES_TOKEN)")
	flags.BoolVar(&a.debug, "debug", false, "Log requests to stderr")
	flags.BoolVarP(&a.yes, "yes", "y", false, "Do not ask for confirmation")
	flags.BoolVar(&a.plain, "plain", false, "Print note content without markdown rendering")

	root.AddCommand(
		newNotesCmd(a),
		newTasksCmd(a),
		newProjectsCmd(a),
		newAreasCmd(a),
		newTagsCmd(a),
		newWatchCmd(a),
		newWhoamiCmd(a),
	)
	return root
}

func (a *app) connect(cmd *cobra.Command) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if a.server != "" {
		cfg.ServerURL = strings.TrimRight(a.server, "/")
	}
	if a.token != "" {
		cfg.Token = a.token
	}

	if a.log, err = logger.NewCLILogger(a.debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.client, err = client.New(cfg.ServerURL,
		client.WithToken(cfg.Token),
		client.WithTimeout(cfg.Timeout),
		client.WithCacheMaxAge(cfg.CacheTTL),
		client.WithLogger(a.log),
	)
	return err
}

// layout returns a view state over unfiltered stores, with overrides
// applied by the caller before the first refresh.
func (a *app) layout(override func(*workspace.Stores)) *workspace.Layout {
	stores := workspace.ClientStores(a.client)
	if override != nil {
		override(&stores)
	}
	return workspace.NewLayout(stores, a.log)
}

// confirm asks question on the command's streams unless --yes was given.
func (a *app) confirm(cmd *cobra.Command, question string) func() bool {
	return func() bool {
		if a.yes {
			return true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// optionalID parses a flag value; an empty value means no id.
func optionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", u.DisplayName(), u.Email)
			fmt.Fprintf(out, "ID: %s\n", u.ID)
			if u.LastActiveAt != nil {
				fmt.Fprintf(out, "Last active: %s\n", u.LastActiveAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
