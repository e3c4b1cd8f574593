package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/events"
	"github.com/guse-cli/guse/internal/history"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/profile"
	"github.com/guse-cli/guse/internal/sshconfig"
	"github.com/guse-cli/guse/internal/ui"
	"github.com/guse-cli/guse/internal/util"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	var p model.Profile
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add a new Git profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr := a.interactive(cmd)
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			id, err := requireArg(pr, id, "id", "Profile id (e.g. personal, work)", "", profile.ValidateID)
			if err != nil {
				return err
			}
			store := a.store()
			set, err := store.Load()
			if err != nil {
				return err
			}
			if set.Has(id) {
				return apperr.New(apperr.KindDuplicateProfile, "profile %q already exists", id)
			}

			if p, err = a.promptProfile(cmd, pr, p, model.Profile{}); err != nil {
				return err
			}
			if _, err := store.Mutate(func(s *profile.Set) error {
				if err := s.Add(id, p); err != nil {
					return err
				}
				if makeDefault {
					return s.SetDefault(id)
				}
				return nil
			}); err != nil {
				return err
			}
			a.record(events.Event{Type: events.ProfileAdded, ProfileID: id, Message: p.Email})
			successf(cmd, "Added profile '%s'.", id)
			if makeDefault {
				a.record(events.Event{Type: events.DefaultSet, ProfileID: id})
				successf(cmd, "Default profile set to '%s'.", id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "git user.name")
	cmd.Flags().StringVar(&p.Email, "email", "", "git user.email")
	cmd.Flags().StringVar(&p.SSHHost, "ssh-host", "", "SSH host alias from ~/.ssh/config")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "make this the default profile")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var p model.Profile
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update an existing Git profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr := a.interactive(cmd)
			store := a.store()
			set, err := store.Load()
			if err != nil {
				return err
			}
			id, err := pickProfile(pr, set, args, "Select profile to update")
			if err != nil {
				return err
			}
			current, err := set.Get(id)
			if err != nil {
				return err
			}

			next := current
			changed := cmd.Flags().Changed
			if changed("name") {
				next.Name = p.Name
			}
			if changed("email") {
				next.Email = p.Email
			}
			if changed("ssh-host") {
				next.SSHHost = p.SSHHost
			}
			if pr != nil && !changed("name") && !changed("email") && !changed("ssh-host") {
				if next, err = a.promptProfile(cmd, pr, model.Profile{}, current); err != nil {
					return err
				}
			}
			if err := profile.Validate(next); err != nil {
				return err
			}
			if next == current {
				fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' unchanged.\n", id)
				return nil
			}
			if _, err := store.Mutate(func(s *profile.Set) error { return s.Update(id, next) }); err != nil {
				return err
			}
			a.record(events.Event{Type: events.ProfileUpdated, ProfileID: id, Message: next.Email})
			successf(cmd, "Updated profile '%s'.", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "new git user.name")
	cmd.Flags().StringVar(&p.Email, "email", "", "new git user.email")
	cmd.Flags().StringVar(&p.SSHHost, "ssh-host", "", "new SSH host alias")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an existing Git profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr := a.interactive(cmd)
			store := a.store()
			set, err := store.Load()
			if err != nil {
				return err
			}
			id, err := pickProfile(pr, set, args, "Select profile to delete")
			if err != nil {
				return err
			}
			if !set.Has(id) {
				return apperr.New(apperr.KindProfileNotFound, "profile %q not found", id)
			}
			if pr != nil && !yes {
				ok, err := pr.Confirm(fmt.Sprintf("Delete profile '%s'?", id), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			var wasDefault bool
			if _, err := store.Mutate(func(s *profile.Set) error {
				var err error
				wasDefault, err = s.Delete(id)
				return err
			}); err != nil {
				return err
			}
			if h := a.history(); h != nil {
				if err := h.Forget(id); err != nil {
					a.log.Warn().Err(err).Str("profile", id).Msg("history cleanup failed")
				}
			}
			a.record(events.Event{Type: events.ProfileDeleted, ProfileID: id})
			successf(cmd, "Deleted profile '%s'.", id)
			if wasDefault {
				a.record(events.Event{Type: events.DefaultUnset, ProfileID: id})
				fmt.Fprintln(cmd.OutOrStdout(), "Default profile cleared.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newSetDefaultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <id>",
		Short: "Set the profile switch applies when no id is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if _, err := a.store().Mutate(func(s *profile.Set) error { return s.SetDefault(id) }); err != nil {
				return err
			}
			a.record(events.Event{Type: events.DefaultSet, ProfileID: id})
			successf(cmd, "Default profile set to '%s'.", id)
			return nil
		},
	}
}

func newUnsetDefaultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset-default",
		Short: "Clear the default profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var prev string
			if _, err := a.store().Mutate(func(s *profile.Set) error {
				prev = s.Default()
				s.UnsetDefault()
				return nil
			}); err != nil {
				return err
			}
			if prev == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No default profile was set.")
				return nil
			}
			a.record(events.Event{Type: events.DefaultUnset, ProfileID: prev})
			successf(cmd, "Default profile cleared.")
			return nil
		},
	}
}

type listRow struct {
	model.NamedProfile
	LastUsed *time.Time `json:"last_used,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	var jsonOut, recent bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all saved Git profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.store().Load()
			if err != nil {
				return err
			}
			profiles := set.List()
			var used map[string]history.Use
			if recent {
				if h := a.history(); h != nil {
					if used, err = h.LastUsed(); err != nil {
						a.log.Warn().Err(err).Msg("read history")
					}
				}
				profiles = history.SortRecent(profiles, used)
			}

			rows := make([]listRow, 0, len(profiles))
			for _, p := range profiles {
				r := listRow{NamedProfile: p}
				if u, ok := used[p.ID]; ok {
					at := u.At
					r.LastUsed = &at
				}
				rows = append(rows, r)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles defined. Add one with 'guse add'.")
				return nil
			}

			headers := []string{"", "ID", "NAME", "EMAIL", "SSH HOST"}
			if recent {
				headers = append(headers, "LAST USED")
			}
			var table [][]string
			for _, r := range rows {
				mark := ""
				if r.Default {
					mark = "*"
				}
				line := []string{mark, r.ID, r.Name, r.Email, r.SSHHost}
				if recent {
					last := "-"
					if r.LastUsed != nil {
						last = r.LastUsed.Local().Format("2006-01-02 15:04")
					}
					line = append(line, last)
				}
				table = append(table, line)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Table(headers, table))
			if def, ok := set.DanglingDefault(); ok {
				warnf(cmd, "default profile %q does not exist", def)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&recent, "recent", false, "most recently switched first")
	return cmd
}

// pickProfile returns the id given in args or asks the user for one.
func pickProfile(pr ui.Prompter, set *profile.Set, args []string, title string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if set.Len() == 0 {
		return "", apperr.New(apperr.KindNoProfilesDefined, "no profiles defined; add one with 'guse add'")
	}
	if pr == nil {
		return "", apperr.New(apperr.KindSelectionRequired, "specify a profile id")
	}
	return pr.Select(title, profileItems(set.List()))
}

func profileItems(profiles []model.NamedProfile) []ui.Item {
	items := make([]ui.Item, 0, len(profiles))
	for _, p := range profiles {
		label := p.ID
		if p.Default {
			label += " (default)"
		}
		items = append(items, ui.Item{
			Label:  label,
			Detail: fmt.Sprintf("%s <%s> via %s", p.Name, p.Email, p.SSHHost),
			Value:  p.ID,
		})
	}
	return items
}

// promptProfile fills the empty fields of p, asking the user when pr is
// not nil. Prompts default to the fields of current.
func (a *app) promptProfile(cmd *cobra.Command, pr ui.Prompter, p, current model.Profile) (model.Profile, error) {
	var err error
	p.Name, err = requireArg(pr, p.Name, "name", "Name (git user.name)", current.Name, nonEmpty("name"))
	if err != nil {
		return p, err
	}
	p.Email, err = requireArg(pr, p.Email, "email", "Email (git user.email)", current.Email, profile.ValidateEmail)
	if err != nil {
		return p, err
	}
	if p.SSHHost == "" && pr != nil {
		if p.SSHHost, err = a.pickSSHHost(cmd, pr, current.SSHHost); err != nil {
			return p, err
		}
	}
	p.SSHHost, err = requireArg(pr, p.SSHHost, "ssh-host", "SSH host alias", current.SSHHost, nonEmpty("ssh_host"))
	if err != nil {
		return p, err
	}
	if err := profile.Validate(p); err != nil {
		return p, err
	}
	a.checkSSHHost(cmd, p.SSHHost)
	return p, nil
}

// pickSSHHost offers the Host aliases of the SSH config. An empty result
// means the user wants to type the alias.
func (a *app) pickSSHHost(cmd *cobra.Command, pr ui.Prompter, current string) (string, error) {
	res, err := sshconfig.Parse(a.settings.SSHConfig)
	if err != nil {
		warnf(cmd, "%s", apperr.UserMessage(err, true))
		return "", nil
	}
	var items []ui.Item
	seen := map[string]bool{}
	for _, h := range res.Hosts {
		for _, alias := range sshconfig.ConcreteAliases(h.Patterns) {
			if seen[alias] {
				continue
			}
			seen[alias] = true
			items = append(items, ui.Item{Label: alias, Detail: hostDetail(h), Value: alias})
		}
	}
	if len(items) == 0 {
		return "", nil
	}
	if current != "" && !seen[current] {
		items = append([]ui.Item{{Label: current, Detail: "current, not in SSH config", Value: current}}, items...)
	}
	items = append(items, ui.Item{Label: "Enter manually", Detail: "type an alias", Value: ""})
	return pr.Select("Select SSH host", items)
}

// checkSSHHost warns when alias is not a Host of the SSH config.
func (a *app) checkSSHHost(cmd *cobra.Command, alias string) {
	patterns, err := sshconfig.ListHosts(a.settings.SSHConfig)
	if err != nil {
		a.log.Debug().Err(err).Msg("ssh config not checked")
		return
	}
	for _, p := range patterns {
		if p == alias {
			return
		}
	}
	warnf(cmd, "SSH host %q is not defined in %s; add it with 'guse add-ssh'", alias, util.ContractHome(a.settings.SSHConfig))
}

func hostDetail(h model.HostEntry) string {
	parts := []string{h.DisplayTarget()}
	if h.User != "" {
		parts = append(parts, "user "+h.User)
	}
	if h.Port != 0 && h.Port != util.DefaultSSHPort {
		parts = append(parts, fmt.Sprintf("port %d", h.Port))
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return apperr.New(apperr.KindInvalidProfile, "%s cannot be empty", field)
		}
		return nil
	}
}
