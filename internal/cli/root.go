// Package cli provides the command-line interface for guse.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/guse-cli/guse/internal/appconfig"
	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/events"
	"github.com/guse-cli/guse/internal/history"
	"github.com/guse-cli/guse/internal/logging"
	"github.com/guse-cli/guse/internal/profile"
	"github.com/guse-cli/guse/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	settings appconfig.Settings
	log      *logging.Logger

	// prompter overrides terminal detection when set.
	prompter ui.Prompter

	verbose bool
}

// Option customizes the root command.
type Option func(*app)

// WithPrompter makes every command interactive and prompt through p.
func WithPrompter(p ui.Prompter) Option {
	return func(a *app) { a.prompter = p }
}

// NewRootCommand creates the root cobra command.
func NewRootCommand(opts ...Option) *cobra.Command {
	return newApp(opts...).rootCommand()
}

func newApp(opts ...Option) *app {
	a := &app{log: logging.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "guse",
		Short:         "Switch between Git identity profiles per repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := appconfig.Load(cmd.Flags(), appconfig.DefaultBindings...)
			if err != nil {
				return err
			}
			if a.verbose {
				s.LogLevel = "debug"
			}
			a.settings = s
			a.log = logging.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}, s.LogLevel)
			a.log.Debug().Str("profiles", s.ProfilesFile).Str("ssh_config", s.SSHConfig).Msg("settings loaded")
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "profiles file (default ~/.git-switch-profiles.toml)")
	pf.String("ssh-config", "", "SSH client config (default ~/.ssh/config)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newAddCmd(a),
		newSwitchCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newListSSHCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newSetDefaultCmd(a),
		newUnsetDefaultCmd(a),
		newAddSSHCmd(a),
		newDoctorCmd(a),
		newLogCmd(a),
	)
	return root
}

// Execute runs guse with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	a := newApp()
	root := a.rootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		a.log.Debug().Msg(apperr.DebugMessage(err))
		fmt.Fprintln(root.ErrOrStderr(), ui.ErrorStyle.Render("error: ")+apperr.UserMessage(err, true))
		return 1
	}
	return 0
}

// interactive returns the prompter to use, or nil when prompting is not
// possible.
func (a *app) interactive(cmd *cobra.Command) ui.Prompter {
	if a.prompter != nil {
		return a.prompter
	}
	if !ui.Interactive(cmd.InOrStdin(), cmd.OutOrStdout()) {
		return nil
	}
	return ui.NewTerminal()
}

func (a *app) store() *profile.Store {
	return profile.NewStore(a.settings.ProfilesFile,
		profile.WithBackups(a.settings.Backup.Keep),
		profile.WithLogger(a.log),
	)
}

// record appends to the activity journal. Journal failures never fail a
// command.
func (a *app) record(evt events.Event) {
	store, err := events.Default()
	if err == nil {
		err = store.Append(evt)
	}
	if err != nil {
		a.log.Warn().Err(err).Str("type", evt.Type).Msg("journal append failed")
	}
}

func (a *app) history() *history.Store {
	store, err := history.Default()
	if err != nil {
		a.log.Warn().Err(err).Msg("history unavailable")
		return nil
	}
	return store
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func warnf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.ErrOrStderr(), ui.WarnStyle.Render("warning: ")+fmt.Sprintf(format, args...))
}

func successf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

// requireArg returns the flag value, prompts for it, or fails when neither
// is possible.
func requireArg(p ui.Prompter, value, flag, label, def string, validate func(string) error) (string, error) {
	if value != "" {
		if validate != nil {
			if err := validate(value); err != nil {
				return "", err
			}
		}
		return value, nil
	}
	if p == nil {
		return "", apperr.New(apperr.KindSelectionRequired, "--%s is required when not running interactively", flag)
	}
	return p.Input(label, def, validate)
}
