// Package git reads and writes the repository-local identity and origin URL.
//
// Everything shells out to the system git binary through exec argv (never
// a shell), so the user's own git installation resolves worktrees,
// include and includeIf sections, and value quoting.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/logging"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/util"
)

// Runner executes git with args in dir and returns trimmed stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct {
	Log *logging.Logger
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Log.Debug().Str("dir", dir).Strs("args", args).Msg("running git")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Args: args, Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// ExitError reports a git invocation that ran but exited non-zero.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	cmd := "git"
	if len(e.Args) > 0 {
		cmd += " " + e.Args[0]
	}
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited %d", cmd, e.Code)
	}
	return fmt.Sprintf("%s exited %d: %s", cmd, e.Code, e.Stderr)
}

// exitCode returns the exit status carried by err, if any.
func exitCode(err error) (int, bool) {
	var e *ExitError
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// EnsureGitBinary checks that git is on PATH.
func EnsureGitBinary() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git binary not found in PATH")
	}
	return nil
}

// Repo is a git work tree.
type Repo struct {
	Root   string
	GitDir string

	run Runner
	log *logging.Logger
}

// Open locates the work tree containing dir.
func Open(ctx context.Context, dir string, run Runner, log *logging.Logger) (*Repo, error) {
	if run == nil {
		run = ExecRunner{Log: log.Sub("git")}
	}
	out, err := run.Run(ctx, dir, "rev-parse", "--show-toplevel", "--absolute-git-dir")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotAGitRepository, err, "not a git repository: %s", dir)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || strings.TrimSpace(lines[0]) == "" {
		return nil, apperr.New(apperr.KindNotAGitRepository, "not inside a git work tree: %s", dir)
	}
	return &Repo{
		Root:   strings.TrimSpace(lines[0]),
		GitDir: strings.TrimSpace(lines[1]),
		run:    run,
		log:    log.Sub("git"),
	}, nil
}

// Identity returns the effective user.name and user.email as git itself
// resolves them for this work tree, and the origin URL. Unset values are
// empty.
func (r *Repo) Identity(ctx context.Context) (model.Identity, error) {
	var id model.Identity
	var err error
	if id.Name, err = r.configValue(ctx, "user.name"); err != nil {
		return model.Identity{}, err
	}
	if id.Email, err = r.configValue(ctx, "user.email"); err != nil {
		return model.Identity{}, err
	}
	url, err := r.run.Run(ctx, r.Root, "remote", "get-url", util.DefaultRemote)
	if err != nil {
		// git exits 2 without such a remote; a negative code means killed.
		if code, ok := exitCode(err); !ok || code < 0 {
			return model.Identity{}, fmt.Errorf("read %s url: %w", util.DefaultRemote, err)
		}
		url = ""
	}
	id.RemoteURL = url
	return id, nil
}

// configValue reads key through git config --get. Exit status 1 means the
// key is unset.
func (r *Repo) configValue(ctx context.Context, key string) (string, error) {
	v, err := r.run.Run(ctx, r.Root, "config", "--get", key)
	if err != nil {
		if code, ok := exitCode(err); ok && code == 1 {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// SetIdentity writes user.name and user.email to the repository config.
func (r *Repo) SetIdentity(ctx context.Context, name, email string) error {
	if _, err := r.run.Run(ctx, r.Root, "config", "--local", "user.name", name); err != nil {
		return fmt.Errorf("set user.name: %w", err)
	}
	if _, err := r.run.Run(ctx, r.Root, "config", "--local", "user.email", email); err != nil {
		return fmt.Errorf("set user.email: %w", err)
	}
	r.log.Debug().Str("name", name).Str("email", email).Msg("identity written")
	return nil
}

// RemoteURL returns the fetch URL of remote.
func (r *Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	url, err := r.run.Run(ctx, r.Root, "remote", "get-url", remote)
	if err != nil {
		return "", apperr.Wrap(apperr.KindRemoteRewriteFailed, err, "no %q remote configured", remote)
	}
	return url, nil
}

// SetRemoteURL points remote at url.
func (r *Repo) SetRemoteURL(ctx context.Context, remote, url string) error {
	if _, err := r.run.Run(ctx, r.Root, "remote", "set-url", remote, url); err != nil {
		return apperr.Wrap(apperr.KindRemoteRewriteFailed, err, "cannot update %q remote", remote)
	}
	r.log.Debug().Str("remote", remote).Str("url", url).Msg("remote rewritten")
	return nil
}
