package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/events"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/sshconfig"
	"github.com/guse-cli/guse/internal/sshkey"
	"github.com/guse-cli/guse/internal/ui"
	"github.com/guse-cli/guse/internal/util"
	"github.com/spf13/cobra"
)

func newListSSHCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list-ssh",
		Short: "List Host entries of the SSH client config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := sshconfig.Parse(a.settings.SSHConfig)
			if err != nil {
				return err
			}
			if jsonOut {
				hosts := res.Hosts
				if hosts == nil {
					hosts = []model.HostEntry{}
				}
				return writeJSON(cmd.OutOrStdout(), hosts)
			}
			if len(res.Hosts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No SSH hosts found in %s.\n", util.ContractHome(a.settings.SSHConfig))
			} else {
				var rows [][]string
				for _, h := range res.Hosts {
					port := "-"
					if h.Port != 0 {
						port = strconv.Itoa(h.Port)
					}
					rows = append(rows, []string{
						strings.Join(h.Patterns, " "),
						util.EmptyDash(h.HostName),
						util.EmptyDash(h.User),
						port,
						util.EmptyDash(util.ContractHome(h.IdentityFile)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"HOST", "HOSTNAME", "USER", "PORT", "IDENTITY FILE"}, rows))
			}
			for _, w := range res.Warnings {
				warnf(cmd, "%s", w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

// Identity file picker values that are not paths.
const (
	identityGenerate = "\x00generate"
	identityManual   = "\x00manual"
	identityNone     = "\x00none"
)

type addSSHOptions struct {
	alias, hostname, user, port, identity string
	generate, copyKey                     bool
}

func newAddSSHCmd(a *app) *cobra.Command {
	var o addSSHOptions
	cmd := &cobra.Command{
		Use:   "add-ssh",
		Short: "Add a Host entry to the SSH client config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pr := a.interactive(cmd)
			path := a.settings.SSHConfig
			existing, err := sshconfig.ListHosts(path)
			if err != nil {
				return err
			}

			alias, err := requireArg(pr, o.alias, "alias", "Host alias (e.g. github-work)", "", func(s string) error {
				return sshconfig.ValidateAlias(existing, s)
			})
			if err != nil {
				return err
			}
			hostname, err := requireArg(pr, o.hostname, "hostname", "HostName", "github.com", nonEmptyHost("HostName"))
			if err != nil {
				return err
			}
			user, err := optionalArg(pr, o.user, "User", "git", nil)
			if err != nil {
				return err
			}
			portText, err := optionalArg(pr, o.port, "Port", strconv.Itoa(util.DefaultSSHPort), func(s string) error {
				_, err := util.ParsePort(s)
				return err
			})
			if err != nil {
				return err
			}
			port := util.DefaultSSHPort
			if portText != "" {
				if port, err = util.ParsePort(portText); err != nil {
					return apperr.Wrap(apperr.KindInvalidHost, err, "invalid port %q", portText)
				}
			}

			sshDir := filepath.Dir(path)
			identity, generate, err := chooseIdentity(pr, o, sshDir, alias)
			if err != nil {
				return err
			}

			var pair sshkey.Pair
			if generate {
				passphrase := ""
				if pr != nil {
					if passphrase, err = pr.Password("Passphrase (empty for none)"); err != nil {
						return err
					}
				}
				if pair, err = sshkey.Generate(identity, alias, passphrase); err != nil {
					return err
				}
				a.record(events.Event{Type: events.SSHKeyGenerated, Message: util.ContractHome(pair.PrivatePath)})
				successf(cmd, "Generated key %s", util.ContractHome(pair.PrivatePath))
			}

			entry := model.HostEntry{Alias: alias, HostName: hostname, User: user, Port: port, IdentityFile: identity}
			if err := sshconfig.AppendHostEntry(path, entry); err != nil {
				return err
			}
			a.record(events.Event{Type: events.SSHHostAdded, Message: alias})
			successf(cmd, "Added Host %s to %s", alias, util.ContractHome(path))
			fmt.Fprint(cmd.OutOrStdout(), sshconfig.FormatHostBlock(entry))

			if generate {
				fmt.Fprintf(cmd.OutOrStdout(), "\nPublic key:\n%s\n", pair.PublicKey)
				if o.copyKey {
					if err := sshkey.CopyPublicKey(pair); err != nil {
						warnf(cmd, "could not copy public key: %v", err)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "Public key copied to clipboard.")
					}
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.alias, "alias", "", "Host alias")
	f.StringVar(&o.hostname, "hostname", "", "HostName the alias connects to")
	f.StringVar(&o.user, "user", "", "remote user (default git when prompting)")
	f.StringVar(&o.port, "port", "", "port (default 22)")
	f.StringVar(&o.identity, "identity-file", "", "private key for this host")
	f.BoolVar(&o.generate, "generate-key", false, "generate an ed25519 key at ~/.ssh/id_<alias>")
	f.BoolVar(&o.copyKey, "copy-public-key", false, "copy the generated public key to the clipboard")
	return cmd
}

// chooseIdentity returns the IdentityFile for the new host and whether a
// key has to be generated there.
func chooseIdentity(pr ui.Prompter, o addSSHOptions, sshDir, alias string) (string, bool, error) {
	if o.identity != "" {
		path := util.ExpandHome(o.identity)
		if o.generate {
			return path, true, nil
		}
		if _, err := os.Stat(path); err != nil {
			return "", false, apperr.Wrap(apperr.KindInvalidHost, err, "identity file %s", o.identity)
		}
		return path, false, nil
	}
	generated := sshkey.DefaultKeyPath(sshDir, alias)
	if o.generate {
		return generated, true, nil
	}
	if pr == nil {
		return "", false, nil
	}

	keys, err := sshkey.ListIdentityFiles(sshDir)
	if err != nil {
		return "", false, apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot list %s", sshDir)
	}
	items := make([]ui.Item, 0, len(keys)+3)
	for _, k := range keys {
		items = append(items, ui.Item{Label: util.ContractHome(k), Value: k})
	}
	items = append(items,
		ui.Item{Label: "Generate new key", Detail: util.ContractHome(generated), Value: identityGenerate},
		ui.Item{Label: "Enter manually", Value: identityManual},
		ui.Item{Label: "None", Detail: "no IdentityFile", Value: identityNone},
	)
	choice, err := pr.Select("Select IdentityFile", items)
	if err != nil {
		return "", false, err
	}
	switch choice {
	case identityGenerate:
		return generated, true, nil
	case identityNone:
		return "", false, nil
	case identityManual:
		path, err := pr.Input("IdentityFile path", "", nonEmptyHost("IdentityFile"))
		if err != nil {
			return "", false, err
		}
		return util.ExpandHome(path), false, nil
	default:
		return choice, false, nil
	}
}

// optionalArg prompts for an optional value; without a prompter the flag
// value is used as is.
func optionalArg(pr ui.Prompter, value, label, def string, validate func(string) error) (string, error) {
	if value != "" || pr == nil {
		return value, nil
	}
	return pr.Input(label, def, validate)
}

func nonEmptyHost(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return apperr.New(apperr.KindInvalidHost, "%s cannot be empty", field)
		}
		if util.HasWhitespace(s) {
			return apperr.New(apperr.KindInvalidHost, "%s cannot contain whitespace", field)
		}
		return nil
	}
}
