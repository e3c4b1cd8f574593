// Package doctor runs local diagnostics for guse.
package doctor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guse-cli/guse/internal/appconfig"
	"github.com/guse-cli/guse/internal/git"
	"github.com/guse-cli/guse/internal/profile"
	"github.com/guse-cli/guse/internal/security"
	"github.com/guse-cli/guse/internal/sshconfig"
	"github.com/guse-cli/guse/internal/util"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`

	// Permissions holds the audit findings behind the security-audit
	// issues so callers can fix them.
	Permissions []security.Finding `json:"-"`
}

// HasHigh reports whether any issue is high severity.
func (r Report) HasHigh() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// Replaced in tests.
var (
	lookGit        = git.EnsureGitBinary
	globalIdentity = git.GlobalIdentity
)

// Run checks the git binary, the profile file, the SSH config and the
// permissions of everything guse reads.
func Run(s appconfig.Settings) Report {
	var issues []Issue

	if err := lookGit(); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "git-binary",
			Target:         "PATH",
			Message:        err.Error(),
			Recommendation: "install git and ensure `git` is on PATH",
		})
	}

	set, err := profile.NewStore(s.ProfilesFile).Load()
	if err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "profile-store",
			Target:         util.ContractHome(s.ProfilesFile),
			Message:        err.Error(),
			Recommendation: "fix the TOML syntax or restore a .backup file next to it",
		})
	}

	res, sshErr := sshconfig.Parse(s.SSHConfig)
	if sshErr != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "ssh-config",
			Target:         util.ContractHome(s.SSHConfig),
			Message:        sshErr.Error(),
			Recommendation: "make the SSH config readable by your user",
		})
	}
	for _, w := range res.Warnings {
		issues = append(issues, Issue{
			Severity:       SeverityLow,
			Check:          "ssh-config-warning",
			Target:         util.ContractHome(s.SSHConfig),
			Message:        w,
			Recommendation: "fix malformed/unsupported SSH config directives",
		})
	}

	if set != nil {
		issues = append(issues, profileIssues(set, res, sshErr == nil)...)
		if i, ok := globalIdentityIssue(set); ok {
			issues = append(issues, i)
		}
	}

	var identities []string
	for _, h := range res.Hosts {
		if h.IdentityFile != "" {
			identities = append(identities, h.IdentityFile)
		}
	}
	cfgDir, _ := appconfig.ConfigDir()
	audit := security.Audit(security.Targets{
		ProfilesFile:  s.ProfilesFile,
		SSHConfig:     s.SSHConfig,
		ConfigDir:     cfgDir,
		IdentityFiles: identities,
	})
	for _, f := range audit.Findings {
		issues = append(issues, Issue{
			Severity:       Severity(f.Severity),
			Check:          "security-audit",
			Target:         util.ContractHome(f.Target),
			Message:        f.Message,
			Recommendation: f.Recommendation,
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		ri := severityRank(issues[i].Severity)
		rj := severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		if issues[i].Target != issues[j].Target {
			return issues[i].Target < issues[j].Target
		}
		return issues[i].Message < issues[j].Message
	})
	return Report{Issues: issues, Permissions: audit.Findings}
}

func profileIssues(set *profile.Set, res sshconfig.ParseResult, sshKnown bool) []Issue {
	var issues []Issue
	if id, ok := set.DanglingDefault(); ok {
		issues = append(issues, Issue{
			Severity:       SeverityMedium,
			Check:          "default-profile",
			Target:         id,
			Message:        fmt.Sprintf("default profile %q does not exist", id),
			Recommendation: "run `guse set-default <id>` or `guse unset-default`",
		})
	}

	aliases := map[string]bool{}
	for _, a := range sshconfig.ConcreteAliases(res.Patterns) {
		aliases[a] = true
	}
	for _, np := range set.List() {
		if err := profile.Validate(np.Profile); err != nil {
			issues = append(issues, Issue{
				Severity:       SeverityMedium,
				Check:          "profile-invalid",
				Target:         np.ID,
				Message:        err.Error(),
				Recommendation: fmt.Sprintf("run `guse update %s`", np.ID),
			})
		}
		if sshKnown && np.SSHHost != "" && !aliases[np.SSHHost] {
			issues = append(issues, Issue{
				Severity:       SeverityMedium,
				Check:          "profile-ssh-host",
				Target:         np.ID,
				Message:        fmt.Sprintf("SSH host %q is not defined in the SSH config", np.SSHHost),
				Recommendation: "add it with `guse add-ssh` or point the profile at an existing Host",
			})
		}
	}
	return issues
}

// globalIdentityIssue flags a global user.email that no profile uses:
// repositories never switched commit as that address.
func globalIdentityIssue(set *profile.Set) (Issue, bool) {
	email := globalIdentity().Email
	if email == "" || set.Len() == 0 {
		return Issue{}, false
	}
	for _, np := range set.List() {
		if strings.EqualFold(np.Email, email) {
			return Issue{}, false
		}
	}
	return Issue{
		Severity:       SeverityLow,
		Check:          "git-global-identity",
		Target:         "user.email",
		Message:        fmt.Sprintf("global user.email %q matches no profile", email),
		Recommendation: "run `guse switch` in each repository or add a profile for this address",
	}, true
}

// Summary counts issues by severity.
func Summary(issues []Issue) map[Severity]int {
	out := map[Severity]int{}
	for _, i := range issues {
		out[i.Severity]++
	}
	return out
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
