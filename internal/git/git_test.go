package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out  map[string]string
	err  map[string]error
	seen []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.seen = append(f.seen, key)
	if err := f.err[key]; err != nil {
		return "", err
	}
	return f.out[key], nil
}

func TestOpenNotARepository(t *testing.T) {
	run := &fakeRunner{err: map[string]error{
		"rev-parse --show-toplevel --absolute-git-dir": errors.New("fatal: not a git repository"),
	}}
	_, err := Open(context.Background(), "/tmp", run, nil)
	assert.ErrorIs(t, err, apperr.ErrNotAGitRepository)
}

func TestOpenParsesRevParse(t *testing.T) {
	run := &fakeRunner{out: map[string]string{
		"rev-parse --show-toplevel --absolute-git-dir": "/src/app\n/src/app/.git",
	}}
	repo, err := Open(context.Background(), "/src/app/sub", run, nil)
	require.NoError(t, err)
	assert.Equal(t, "/src/app", repo.Root)
	assert.Equal(t, "/src/app/.git", repo.GitDir)
}

func TestSetIdentityAndRemoteUseLocalScope(t *testing.T) {
	run := &fakeRunner{out: map[string]string{
		"rev-parse --show-toplevel --absolute-git-dir": "/r\n/r/.git",
		"remote get-url origin":                        "git@github.com:a/b.git",
	}}
	repo, err := Open(context.Background(), "/r", run, nil)
	require.NoError(t, err)

	require.NoError(t, repo.SetIdentity(context.Background(), "W", "w@x.com"))
	url, err := repo.RemoteURL(context.Background(), "origin")
	require.NoError(t, err)
	require.NoError(t, repo.SetRemoteURL(context.Background(), "origin", "git@gh:a/b.git"))

	assert.Equal(t, "git@github.com:a/b.git", url)
	assert.Equal(t, []string{
		"rev-parse --show-toplevel --absolute-git-dir",
		"config --local user.name W",
		"config --local user.email w@x.com",
		"remote get-url origin",
		"remote set-url origin git@gh:a/b.git",
	}, run.seen)
}

func TestRemoteURLMissing(t *testing.T) {
	run := &fakeRunner{
		out: map[string]string{"rev-parse --show-toplevel --absolute-git-dir": "/r\n/r/.git"},
		err: map[string]error{"remote get-url origin": errors.New("error: No such remote 'origin'")},
	}
	repo, err := Open(context.Background(), "/r", run, nil)
	require.NoError(t, err)
	_, err = repo.RemoteURL(context.Background(), "origin")
	assert.ErrorIs(t, err, apperr.ErrRemoteRewriteFailed)
}

func TestIdentityTreatsExitOneAsUnset(t *testing.T) {
	run := &fakeRunner{
		out: map[string]string{
			"rev-parse --show-toplevel --absolute-git-dir": "/r\n/r/.git",
			"config --get user.name":                       "Jane #1; Doe",
		},
		err: map[string]error{
			"config --get user.email": &ExitError{Args: []string{"config"}, Code: 1},
			"remote get-url origin":   &ExitError{Args: []string{"remote"}, Code: 2, Stderr: "error: No such remote 'origin'"},
		},
	}
	repo, err := Open(context.Background(), "/r", run, nil)
	require.NoError(t, err)

	id, err := repo.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane #1; Doe", id.Name)
	assert.Empty(t, id.Email)
	assert.Empty(t, id.RemoteURL)
}

func TestIdentityReportsConfigErrors(t *testing.T) {
	run := &fakeRunner{
		out: map[string]string{"rev-parse --show-toplevel --absolute-git-dir": "/r\n/r/.git"},
		err: map[string]error{
			"config --get user.name": &ExitError{Args: []string{"config"}, Code: 128, Stderr: "fatal: bad config line 3"},
		},
	}
	repo, err := Open(context.Background(), "/r", run, nil)
	require.NoError(t, err)

	_, err = repo.Identity(context.Background())
	assert.ErrorContains(t, err, "bad config line 3")
}

func TestExitErrorMessage(t *testing.T) {
	assert.Equal(t, "git config exited 1", (&ExitError{Args: []string{"config", "--get", "x"}, Code: 1}).Error())
	assert.Equal(t, "git remote exited 2: no such remote",
		(&ExitError{Args: []string{"remote"}, Code: 2, Stderr: "no such remote"}).Error())
}

// initRepo creates a real repository with an isolated HOME.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-q", dir)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return dir
}

func TestRealRepoRoundTrip(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	repo, err := Open(ctx, sub, nil, nil)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(repo.Root)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	id, err := repo.Identity(ctx)
	require.NoError(t, err)
	assert.True(t, id.IsEmpty())

	require.NoError(t, repo.SetIdentity(ctx, "Work Person", "w@x.com"))
	_, err = repo.RemoteURL(ctx, "origin")
	assert.ErrorIs(t, err, apperr.ErrRemoteRewriteFailed)

	_, err = ExecRunner{}.Run(ctx, dir, "remote", "add", "origin", "https://github.com/alice/project.git")
	require.NoError(t, err)
	require.NoError(t, repo.SetRemoteURL(ctx, "origin", "git@github-work:alice/project.git"))

	id, err = repo.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Work Person", id.Name)
	assert.Equal(t, "w@x.com", id.Email)
	assert.Equal(t, "git@github-work:alice/project.git", id.RemoteURL)
}

// gitRun runs git in dir with a throwaway committer identity.
func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.name=Setup", "-c", "user.email=setup@x.com"}, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestRealIdentityInLinkedWorktree(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	gitRun(t, dir, "commit", "-q", "--allow-empty", "-m", "init")
	gitRun(t, dir, "remote", "add", "origin", "git@github.com:alice/project.git")
	wt := filepath.Join(t.TempDir(), "wt")
	gitRun(t, dir, "worktree", "add", "-q", wt)

	repo, err := Open(ctx, wt, nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SetIdentity(ctx, "Jane #1; Doe", "jane@x.com"))

	id, err := repo.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane #1; Doe", id.Name)
	assert.Equal(t, "jane@x.com", id.Email)
	assert.Equal(t, "git@github.com:alice/project.git", id.RemoteURL)

	// The main work tree shares the common config.
	primary, err := Open(ctx, dir, nil, nil)
	require.NoError(t, err)
	id, err = primary.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane #1; Doe", id.Name)
}

func TestRealIdentityFollowsIncludeIf(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	root, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	included := filepath.Join(os.Getenv("HOME"), "work.gitconfig")
	require.NoError(t, os.WriteFile(included, []byte("[user]\n\tname = Included Person\n\temail = inc@x.com\n"), 0o600))
	global := "[includeIf \"gitdir:" + root + "/\"]\n\tpath = " + included + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(os.Getenv("HOME"), ".gitconfig"), []byte(global), 0o600))

	repo, err := Open(ctx, root, nil, nil)
	require.NoError(t, err)
	id, err := repo.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Included Person", id.Name)
	assert.Equal(t, "inc@x.com", id.Email)
}

func TestRealOpenOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	_, err := Open(context.Background(), t.TempDir(), nil, nil)
	assert.ErrorIs(t, err, apperr.ErrNotAGitRepository)
}
