package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := New(KindProfileNotFound, "profile %q not found", "work")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.NotErrorIs(t, err, ErrDuplicateProfile)

	wrapped := fmt.Errorf("switch: %w", err)
	assert.ErrorIs(t, wrapped, ErrProfileNotFound)
	assert.Equal(t, KindProfileNotFound, KindOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(KindStoreUnavailable, fs.ErrPermission, "write %s", "/tmp/p.toml")
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, "write /tmp/p.toml: permission denied", err.Error())
}

func TestErrorWithoutMessageUsesKind(t *testing.T) {
	assert.Equal(t, "no profiles defined", ErrNoProfilesDefined.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestUserMessageRedactsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	err := New(KindStoreUnavailable, "cannot parse %s", filepath.Join(home, ".git-switch-profiles.toml"))
	assert.Equal(t, "cannot parse ~/.git-switch-profiles.toml", UserMessage(err, true))
	assert.Contains(t, UserMessage(err, false), home)
	assert.Equal(t, "", UserMessage(nil, true))
}

func TestDebugMessageListsChain(t *testing.T) {
	err := Wrap(KindRemoteRewriteFailed, errors.New("exit status 2"), "set origin url")
	got := DebugMessage(fmt.Errorf("apply: %w", err))
	assert.Contains(t, got, "[remote_rewrite_failed] set origin url")
	assert.Contains(t, got, "exit status 2")
}
