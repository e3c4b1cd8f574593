package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "profiles.toml"))
	set, err := st.Load()
	require.NoError(t, err)
	assert.Zero(t, set.Len())
	assert.Empty(t, set.Default())
}

func TestSaveLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles.toml")
	st := NewStore(path)

	set := NewSet(nil, "")
	require.NoError(t, set.Add("work", work))
	require.NoError(t, set.Add("personal", personal))
	require.NoError(t, set.SetDefault("work"))
	require.NoError(t, st.Save(set))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "default_profile")
	assert.Contains(t, string(raw), "[profiles.work]")
	assert.Contains(t, string(raw), "github-work")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, set.Profiles(), loaded.Profiles())
	assert.Equal(t, "work", loaded.Default())
}

func TestLoadHandWrittenTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	doc := `default_profile = "work"

[profiles.work]
name = "W"
email = "w@x.com"
ssh_host = "github-work"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	set, err := NewStore(path).Load()
	require.NoError(t, err)
	got, err := set.Get("work")
	require.NoError(t, err)
	assert.Equal(t, work, got)
	assert.Equal(t, "work", set.Default())
}

func TestSaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	st := NewStore(path)

	set := NewSet(map[string]model.Profile{"personal": personal}, "")
	require.NoError(t, st.Save(set))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ssh_host: github-personal")
	assert.NotContains(t, string(raw), "default_profile")

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, set.Profiles(), loaded.Profiles())
}

func TestLoadInvalidIsStoreUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	require.NoError(t, os.WriteFile(path, []byte("[profiles.work\nname = "), 0o600))

	_, err := NewStore(path).Load()
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestLoadDirectoryIsStoreUnavailable(t *testing.T) {
	_, err := NewStore(t.TempDir()).Load()
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestSaveWritesAndPrunesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	st := NewStore(path, WithBackups(2), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	set := NewSet(nil, "")
	require.NoError(t, st.Save(set))
	backups, err := st.Backups()
	require.NoError(t, err)
	assert.Empty(t, backups, "first save has nothing to back up")

	for i := 0; i < 4; i++ {
		require.NoError(t, set.Add(string(rune('a'+i)), work))
		require.NoError(t, st.Save(set))
	}

	backups, err = st.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, path+".backup.20240301_100003.000", backups[0])
	assert.Equal(t, path+".backup.20240301_100004.000", backups[1])

	// The newest backup holds the state before the last save.
	prev, err := NewStore(backups[1]).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, prev.IDs())
}

func TestSaveKeepsBackupsFromTheSameInstant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	at := time.Date(2024, 3, 1, 10, 0, 0, 250*int(time.Millisecond), time.UTC)
	st := NewStore(path, WithBackups(5), WithClock(func() time.Time { return at }))

	set := NewSet(nil, "")
	require.NoError(t, st.Save(set))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, set.Add(id, work))
		require.NoError(t, st.Save(set))
	}

	backups, err := st.Backups()
	require.NoError(t, err)
	base := path + ".backup.20240301_100000.250"
	assert.Equal(t, []string{base, base + "-01", base + "-02"}, backups)

	oldest, err := NewStore(backups[0]).Load()
	require.NoError(t, err)
	assert.Zero(t, oldest.Len())
	newest, err := NewStore(backups[2]).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, newest.IDs())
}

func TestSaveParentIsFileIsStoreUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("keep me"), 0o600))

	set := NewSet(nil, "")
	require.NoError(t, set.Add("work", work))
	err := NewStore(filepath.Join(blocker, "profiles.toml"), WithBackups(2)).Save(set)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	b, readErr := os.ReadFile(blocker)
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(b))
}

func TestSaveFailureLeavesExistingFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.toml")
	const original = "[profiles.work]\nname = \"W\"\nemail = \"w@x.com\"\nssh_host = \"github-work\"\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o600))
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	st := NewStore(path)
	set, err := st.Load()
	require.NoError(t, err)
	require.NoError(t, set.Add("personal", personal))
	err = st.Save(set)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	b, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, original, string(b))
}

func TestSaveThroughSymlinkKeepsLink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "dotfiles.toml")
	link := filepath.Join(dir, "profiles.toml")
	require.NoError(t, os.WriteFile(target, nil, 0o600))
	require.NoError(t, os.Symlink(target, link))

	set := NewSet(nil, "")
	require.NoError(t, set.Add("work", work))
	require.NoError(t, NewStore(link).Save(set))

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
	loaded, err := NewStore(target).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, loaded.IDs())
}

func TestBackupsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	st := NewStore(path, WithBackups(0))
	set := NewSet(nil, "")
	require.NoError(t, st.Save(set))
	require.NoError(t, st.Save(set))

	backups, err := st.Backups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestMutateSkipsSaveOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	st := NewStore(path)

	_, err := st.Mutate(func(s *Set) error { return s.SetDefault("ghost") })
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	set, err := st.Mutate(func(s *Set) error { return s.Add("work", work) })
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, set.IDs())

	reloaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, reloaded.IDs())
}
