package cli

import (
	"errors"
	"fmt"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/events"
	"github.com/guse-cli/guse/internal/git"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/switcher"
	"github.com/guse-cli/guse/internal/ui"
	"github.com/guse-cli/guse/internal/util"
	"github.com/spf13/cobra"
)

func newSwitchCmd(a *app) *cobra.Command {
	var dir string
	var opts switcher.Options
	cmd := &cobra.Command{
		Use:   "switch [id]",
		Short: "Apply a profile to the current repository",
		Long: "Sets the repository-local user.name and user.email and points the origin\n" +
			"remote at the profile's SSH host alias. Without an id the default profile\n" +
			"is used, or you are asked to pick one.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.store().Load()
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			var choose switcher.Chooser
			if pr := a.interactive(cmd); pr != nil {
				choose = func(profiles []model.NamedProfile) (string, error) {
					return pr.Select("Select profile", profileItems(profiles))
				}
			}
			id, err = switcher.Resolve(set, id, choose)
			if err != nil {
				return err
			}
			p, err := set.Get(id)
			if err != nil {
				return err
			}

			if err := git.EnsureGitBinary(); err != nil {
				return err
			}
			repo, err := git.Open(cmd.Context(), dir, nil, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loading profile '%s'\n", id)
			res, err := switcher.Applier{Repo: repo, Log: a.log.Sub("switch")}.Apply(cmd.Context(), id, p, opts)
			if err != nil {
				a.record(events.Event{Type: events.SwitchFailed, ProfileID: id, Repo: repo.Root, Message: apperr.UserMessage(err, true)})
				if errors.Is(err, apperr.ErrRemoteRewriteFailed) {
					printSwitch(cmd, res)
					warnf(cmd, "Git identity was applied but the remote was not updated; use --no-remote to skip it")
				}
				return err
			}
			printSwitch(cmd, res)
			a.record(events.Event{Type: events.SwitchApplied, ProfileID: id, Repo: repo.Root, Message: res.NewRemote})
			if h := a.history(); h != nil {
				if err := h.Touch(id, repo.Root); err != nil {
					a.log.Warn().Err(err).Msg("history update failed")
				}
			}
			successf(cmd, "Switched to profile '%s'.", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "repository directory")
	cmd.Flags().BoolVar(&opts.SkipRemote, "no-remote", false, "only set user.name and user.email")
	cmd.Flags().StringVar(&opts.Remote, "remote", util.DefaultRemote, "remote to rewrite")
	return cmd
}

func printSwitch(cmd *cobra.Command, res switcher.Result) {
	rows := [][]string{
		{"user.name", res.Profile.Name},
		{"user.email", res.Profile.Email},
		{"ssh host", res.Profile.SSHHost},
	}
	if res.OldRemote != "" {
		remote := res.NewRemote
		if !res.RemoteUpdated {
			remote += " (unchanged)"
		}
		rows = append(rows, []string{"remote", remote})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"Setting", "Value"}, rows))
}

func newShowCmd(a *app) *cobra.Command {
	var dir string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the repository's Git identity and the profile it matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.store().Load()
			if err != nil {
				return err
			}
			if err := git.EnsureGitBinary(); err != nil {
				return err
			}
			repo, err := git.Open(cmd.Context(), dir, nil, a.log)
			if err != nil {
				return err
			}
			rep, err := switcher.Show(cmd.Context(), repo, set)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), rep)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.TitleStyle.Render("Current Git Configuration"))
			fmt.Fprintln(out, ui.Table([]string{"Setting", "Value"}, [][]string{
				{"user.name", util.EmptyDash(rep.Identity.Name)},
				{"user.email", util.EmptyDash(rep.Identity.Email)},
				{"remote.origin.url", util.EmptyDash(rep.Identity.RemoteURL)},
			}))
			matched := ui.MutedStyle.Render("None")
			if rep.Matched {
				matched = ui.SuccessStyle.Render(rep.Profile.ID)
			}
			fmt.Fprintf(out, "%s %s\n", ui.LabelStyle.Render("Matched guse profile:"), matched)
			def := ui.MutedStyle.Render("None")
			if rep.Default != "" {
				def = rep.Default
			}
			fmt.Fprintf(out, "%s %s\n", ui.LabelStyle.Render("Default profile:"), def)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "repository directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
