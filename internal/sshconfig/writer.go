package sshconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/util"
)

// AppendHostEntry appends a Host block to the config at path, creating the
// file and its directory when missing. Appended blocks have the lowest
// priority under OpenSSH's first-match-wins resolution.
func AppendHostEntry(path string, entry model.HostEntry) error {
	path = util.ExpandHome(path)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot read SSH config %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot create %s", filepath.Dir(path))
	}

	var prefix string
	switch {
	case len(existing) == 0:
	case strings.HasSuffix(string(existing), "\n"):
		prefix = "\n"
	default:
		prefix = "\n\n"
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot open SSH config %s", path)
	}
	defer f.Close()

	if _, err := f.WriteString(prefix + FormatHostBlock(entry)); err != nil {
		return apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot write SSH config %s", path)
	}
	return nil
}

// FormatHostBlock renders entry as a Host block. Empty fields, the default
// port and a HostName equal to the alias are omitted.
func FormatHostBlock(entry model.HostEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host %s\n", entry.Alias)
	if entry.HostName != "" && entry.HostName != entry.Alias {
		fmt.Fprintf(&b, "  HostName %s\n", entry.HostName)
	}
	if entry.User != "" {
		fmt.Fprintf(&b, "  User %s\n", entry.User)
	}
	if entry.Port != 0 && entry.Port != util.DefaultSSHPort {
		fmt.Fprintf(&b, "  Port %d\n", entry.Port)
	}
	if entry.IdentityFile != "" {
		fmt.Fprintf(&b, "  IdentityFile %s\n", quoteIfNeeded(util.ContractHome(entry.IdentityFile)))
		b.WriteString("  IdentitiesOnly yes\n")
	}
	if entry.ProxyJump != "" {
		fmt.Fprintf(&b, "  ProxyJump %s\n", entry.ProxyJump)
	}
	return b.String()
}

// ValidateAlias checks a new alias against the patterns already configured.
// Duplicates are matched case-insensitively, as ssh matches host names.
func ValidateAlias(existing []string, alias string) error {
	if strings.TrimSpace(alias) == "" {
		return apperr.New(apperr.KindInvalidHost, "alias cannot be empty")
	}
	if strings.ContainsAny(alias, " \t*?!,") {
		return apperr.New(apperr.KindInvalidHost, "alias %q cannot contain spaces or wildcard characters", alias)
	}
	for _, p := range existing {
		if strings.EqualFold(p, alias) {
			return apperr.New(apperr.KindInvalidHost, "alias %q already exists in SSH config", alias)
		}
	}
	return nil
}

func quoteIfNeeded(s string) string {
	if util.HasWhitespace(s) {
		return `"` + s + `"`
	}
	return s
}
