package git

import (
	"net/url"
	"strings"

	"github.com/guse-cli/guse/internal/apperr"
)

// Remote is a parsed remote URL.
type Remote struct {
	Host string
	Path string // without leading slash or trailing ".git"
}

// ParseRemote accepts scp-like ("git@host:owner/repo.git"), ssh:// and
// http(s):// remote URLs.
func ParseRemote(raw string) (Remote, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Remote{}, rewriteErr(raw)
	}

	var host, path string
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return Remote{}, apperr.Wrap(apperr.KindRemoteRewriteFailed, err, "cannot parse remote URL %q", raw)
		}
		switch u.Scheme {
		case "ssh", "git+ssh", "http", "https":
		default:
			return Remote{}, rewriteErr(raw)
		}
		host, path = u.Hostname(), u.Path
	} else {
		colon := strings.Index(s, ":")
		slash := strings.Index(s, "/")
		if colon <= 0 || (slash >= 0 && slash < colon) {
			return Remote{}, rewriteErr(raw)
		}
		host = s[:colon]
		if at := strings.LastIndex(host, "@"); at >= 0 {
			host = host[at+1:]
		}
		path = s[colon+1:]
	}

	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	if host == "" || path == "" || strings.Contains(path, "..") {
		return Remote{}, rewriteErr(raw)
	}
	return Remote{Host: host, Path: path}, nil
}

// RewriteRemote returns raw re-pointed at the SSH host alias:
// "git@<alias>:<path>.git".
func RewriteRemote(raw, alias string) (string, error) {
	r, err := ParseRemote(raw)
	if err != nil {
		return "", err
	}
	return "git@" + alias + ":" + r.Path + ".git", nil
}

func rewriteErr(raw string) error {
	return apperr.New(apperr.KindRemoteRewriteFailed, "unrecognized remote URL %q", raw)
}
