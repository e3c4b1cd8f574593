// Package sshconfig reads and appends to the OpenSSH client configuration.
package sshconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/util"
)

// ParseResult is everything read from one root config and its includes.
type ParseResult struct {
	// Patterns lists every token of every Host line in file order,
	// with includes expanded where they appear.
	Patterns []string
	// Hosts has one entry per Host block, in the same order.
	Hosts    []model.HostEntry
	Warnings []string
}

// ListHosts returns every Host pattern in path, in file order. A missing
// file yields an empty list.
func ListHosts(path string) ([]string, error) {
	res, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return res.Patterns, nil
}

// Parse reads path, expanding Include directives in place. Malformed lines
// become warnings; only an unreadable root file is an error.
func Parse(path string) (ParseResult, error) {
	p := &parser{seen: map[string]bool{}}
	abs, err := filepath.Abs(util.ExpandHome(path))
	if err != nil {
		return ParseResult{}, apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot resolve %s", path)
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ParseResult{}, nil
		}
		return ParseResult{}, apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot read SSH config %s", path)
	}
	defer f.Close()

	p.seen[abs] = true
	if err := p.scan(f, abs, 0); err != nil {
		return ParseResult{}, apperr.Wrap(apperr.KindSSHConfigUnavailable, err, "cannot read SSH config %s", path)
	}
	return ParseResult{Patterns: p.patterns, Hosts: p.hosts, Warnings: p.warnings}, nil
}

// ConcreteAliases drops wildcard and negated patterns and repeats,
// keeping first-seen order.
func ConcreteAliases(patterns []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		if !IsConcreteAlias(p) || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// IsConcreteAlias reports whether pattern names a single host.
func IsConcreteAlias(pattern string) bool {
	if pattern == "" || strings.HasPrefix(pattern, "!") {
		return false
	}
	return !strings.ContainsAny(pattern, "*?")
}

type parser struct {
	seen     map[string]bool
	patterns []string
	hosts    []model.HostEntry
	warnings []string
}

func (p *parser) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *parser) include(path string, depth int) {
	if depth > util.MaxIncludeDepth {
		p.warnf("include depth exceeded at %s", path)
		return
	}
	if p.seen[path] {
		p.warnf("include cycle skipped: %s", path)
		return
	}
	p.seen[path] = true

	f, err := os.Open(path)
	if err != nil {
		p.warnf("include %s failed: %v", path, err)
		return
	}
	defer f.Close()
	if err := p.scan(f, path, depth); err != nil {
		p.warnf("include %s failed: %v", path, err)
	}
}

func (p *parser) scan(r io.Reader, path string, depth int) error {
	current := -1
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripInlineComment(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		key, value, ok := splitDirective(line)
		if !ok {
			p.warnf("%s:%d invalid directive", path, lineNo)
			continue
		}

		switch strings.ToLower(key) {
		case "host":
			patterns := strings.Fields(value)
			p.patterns = append(p.patterns, patterns...)
			alias := patterns[0]
			for _, pat := range patterns {
				if IsConcreteAlias(pat) {
					alias = pat
					break
				}
			}
			p.hosts = append(p.hosts, model.HostEntry{Alias: alias, Patterns: patterns, Source: path})
			current = len(p.hosts) - 1
		case "match":
			// Match blocks carry no aliases; stop attributing settings.
			current = -1
		case "include":
			for _, pattern := range strings.Fields(value) {
				p.expandInclude(path, lineNo, pattern, depth)
			}
		default:
			if current >= 0 {
				p.apply(&p.hosts[current], path, lineNo, key, unquote(value))
			}
		}
	}
	return scanner.Err()
}

func (p *parser) expandInclude(from string, lineNo int, pattern string, depth int) {
	inc := util.ExpandHome(unquote(pattern))
	if !filepath.IsAbs(inc) {
		// Relative to the including file, which is ~/.ssh for the user config.
		inc = filepath.Join(filepath.Dir(from), inc)
	}
	matches, err := filepath.Glob(inc)
	if err != nil {
		p.warnf("%s:%d bad include pattern %q", from, lineNo, pattern)
		return
	}
	if len(matches) == 0 {
		p.warnf("%s:%d include matched nothing: %q", from, lineNo, pattern)
		return
	}
	sort.Strings(matches)
	for _, m := range matches {
		p.include(m, depth+1)
	}
}

// apply records the first value of a directive; later ones are ignored as
// they are by ssh.
func (p *parser) apply(h *model.HostEntry, path string, lineNo int, key, value string) {
	switch strings.ToLower(key) {
	case "hostname":
		if h.HostName == "" {
			h.HostName = value
		}
	case "user":
		if h.User == "" {
			h.User = value
		}
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil || util.ValidatePort(port) != nil {
			p.warnf("%s:%d invalid port %q", path, lineNo, value)
			return
		}
		if h.Port == 0 {
			h.Port = port
		}
	case "identityfile":
		if h.IdentityFile == "" {
			h.IdentityFile = util.ExpandHome(value)
		}
	case "proxyjump":
		if h.ProxyJump == "" {
			h.ProxyJump = value
		}
	}
}

// splitDirective accepts both "Key value" and "Key=value" forms.
func splitDirective(line string) (key, value string, ok bool) {
	i := strings.IndexAny(line, " \t=")
	if i <= 0 {
		return "", "", false
	}
	key = line[:i]
	value = strings.TrimSpace(line[i:])
	value = strings.TrimSpace(strings.TrimPrefix(value, "="))
	return key, value, value != ""
}

func stripInlineComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
