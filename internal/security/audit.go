// Package security checks the file permissions guse and OpenSSH depend on.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guse-cli/guse/internal/util"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Finding struct {
	Severity       Severity `json:"severity"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`

	// Want is the widest acceptable mode; zero when Fix cannot help.
	Want os.FileMode `json:"-"`
}

type AuditReport struct {
	Findings []Finding `json:"findings"`
}

func (r AuditReport) HasHigh() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// Targets lists the paths to inspect. Empty fields are skipped.
type Targets struct {
	ProfilesFile  string
	SSHConfig     string
	ConfigDir     string
	IdentityFiles []string
}

type permCheck struct {
	path string
	max  os.FileMode
	dir  bool
	sev  Severity
}

func (t Targets) checks() []permCheck {
	var out []permCheck
	if t.ProfilesFile != "" {
		out = append(out, permCheck{path: t.ProfilesFile, max: 0o600, sev: SeverityMedium})
	}
	if t.SSHConfig != "" {
		// ssh refuses a config in a directory others can write to.
		out = append(out,
			permCheck{path: filepath.Dir(t.SSHConfig), max: 0o700, dir: true, sev: SeverityMedium},
			permCheck{path: t.SSHConfig, max: 0o600, sev: SeverityMedium},
		)
	}
	if t.ConfigDir != "" {
		out = append(out, permCheck{path: t.ConfigDir, max: 0o700, dir: true, sev: SeverityLow})
	}
	seen := map[string]bool{}
	for _, identity := range t.IdentityFiles {
		identity = util.ExpandHome(strings.TrimSpace(identity))
		if identity == "" || seen[identity] {
			continue
		}
		seen[identity] = true
		// ssh ignores private keys readable by others.
		out = append(out, permCheck{path: identity, max: 0o600, sev: SeverityHigh})
	}
	return out
}

// Audit inspects the permissions of every target. Missing paths are fine.
func Audit(t Targets) AuditReport {
	var findings []Finding
	for _, c := range t.checks() {
		if f, ok := c.run(); ok {
			findings = append(findings, f)
		}
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return severityRank(findings[i].Severity) > severityRank(findings[j].Severity)
		}
		if findings[i].Target != findings[j].Target {
			return findings[i].Target < findings[j].Target
		}
		return findings[i].Message < findings[j].Message
	})
	return AuditReport{Findings: findings}
}

func (c permCheck) run() (Finding, bool) {
	st, err := os.Stat(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Finding{}, false
	}
	if err != nil {
		return Finding{
			Severity:       SeverityLow,
			Target:         c.path,
			Message:        fmt.Sprintf("unable to inspect permissions: %v", err),
			Recommendation: "verify path and permissions manually",
		}, true
	}
	mode := st.Mode().Perm()
	if mode&^c.max == 0 {
		return Finding{}, false
	}
	kind := "file"
	if c.dir {
		kind = "directory"
	}
	return Finding{
		Severity:       c.sev,
		Target:         c.path,
		Message:        fmt.Sprintf("%s permissions are too broad (%#o)", kind, mode),
		Recommendation: fmt.Sprintf("chmod %#o %s", c.max, util.ContractHome(c.path)),
		Want:           c.max,
	}, true
}

// Fix drops the excess permission bits of every fixable finding and
// returns the paths it changed.
func Fix(findings []Finding) ([]string, error) {
	var fixed []string
	var errs []error
	for _, f := range findings {
		if f.Want == 0 {
			continue
		}
		st, err := os.Stat(f.Target)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Chmod(f.Target, st.Mode().Perm()&f.Want); err != nil {
			errs = append(errs, err)
			continue
		}
		fixed = append(fixed, f.Target)
	}
	return fixed, errors.Join(errs...)
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
