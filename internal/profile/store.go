package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/logging"
	"github.com/guse-cli/guse/internal/model"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// backupLayout sorts lexically in time order.
const backupLayout = "20060102_150405.000"

// fileModel is the on-disk document.
type fileModel struct {
	DefaultProfile string                   `toml:"default_profile,omitempty" yaml:"default_profile,omitempty"`
	Profiles       map[string]model.Profile `toml:"profiles" yaml:"profiles"`
}

// Store persists a Set to a single TOML (or YAML) file.
type Store struct {
	path string
	keep int
	now  func() time.Time
	log  *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBackups keeps the newest n backups; 0 disables backups.
func WithBackups(n int) Option {
	return func(s *Store) { s.keep = n }
}

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.log = l.Sub("store") }
}

// WithClock overrides the clock used to name backups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store for path. Nothing is read until Load.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now, log: logging.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string { return s.path }

// Load reads the profile file. A missing file yields an empty Set.
func (s *Store) Load() (*Set, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug().Str("path", s.path).Msg("profile file absent, starting empty")
			return NewSet(nil, ""), nil
		}
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "cannot read configuration file %s", s.path)
	}
	var fm fileModel
	if err := codecFor(s.path).unmarshal(b, &fm); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "cannot parse configuration file %s", s.path)
	}
	s.log.Debug().Str("path", s.path).Int("profiles", len(fm.Profiles)).Msg("loaded profiles")
	return NewSet(fm.Profiles, fm.DefaultProfile), nil
}

// Save writes set to disk, backing up the previous file first.
func (s *Store) Save(set *Set) error {
	fm := fileModel{DefaultProfile: set.Default(), Profiles: set.Profiles()}
	b, err := codecFor(s.path).marshal(fm)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "cannot encode profiles")
	}
	if err := s.backup(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "cannot back up %s", s.path)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "cannot create directory for %s", s.path)
	}
	if err := writeAtomic(s.path, b); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "cannot write configuration file %s", s.path)
	}
	s.log.Debug().Str("path", s.path).Int("profiles", set.Len()).Str("default", set.Default()).Msg("saved profiles")
	return nil
}

// writeAtomic replaces path through a temp file in the same directory so
// a failed write leaves the previous contents intact. A symlinked path
// keeps its link.
func writeAtomic(path string, b []byte) error {
	if target, err := filepath.EvalSymlinks(path); err == nil {
		path = target
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Mutate loads the set, applies fn and saves the result. Nothing is
// written when fn fails.
func (s *Store) Mutate(fn func(*Set) error) (*Set, error) {
	set, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(set); err != nil {
		return set, err
	}
	if err := s.Save(set); err != nil {
		return set, err
	}
	return set, nil
}

// Backups lists existing backup files, oldest first.
func (s *Store) Backups() ([]string, error) {
	dir := filepath.Dir(s.path)
	prefix := filepath.Base(s.path) + ".backup."
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) backup() error {
	if s.keep <= 0 {
		return nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	dst, err := s.writeBackup(b)
	if err != nil {
		return err
	}
	s.log.Debug().Str("backup", dst).Msg("backed up profile file")
	return s.prune()
}

// writeBackup never overwrites an earlier backup: a name already taken
// within the same millisecond gets a counter suffix.
func (s *Store) writeBackup(b []byte) (string, error) {
	base := fmt.Sprintf("%s.backup.%s", s.path, s.now().Format(backupLayout))
	for n := 0; n < 100; n++ {
		dst := base
		if n > 0 {
			dst = fmt.Sprintf("%s-%02d", base, n)
		}
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(b); err != nil {
			f.Close()
			return "", err
		}
		return dst, f.Close()
	}
	return "", fmt.Errorf("too many backups named %s", base)
}

func (s *Store) prune() error {
	backups, err := s.Backups()
	if err != nil {
		return err
	}
	for len(backups) > s.keep {
		if err := os.Remove(backups[0]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

type codec interface {
	marshal(fileModel) ([]byte, error)
	unmarshal([]byte, *fileModel) error
}

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}
	default:
		return tomlCodec{}
	}
}

type tomlCodec struct{}

func (tomlCodec) marshal(fm fileModel) ([]byte, error) {
	return toml.Marshal(fm)
}

func (tomlCodec) unmarshal(b []byte, fm *fileModel) error {
	return toml.Unmarshal(b, fm)
}

type yamlCodec struct{}

func (yamlCodec) marshal(fm fileModel) ([]byte, error) {
	return yaml.Marshal(fm)
}

func (yamlCodec) unmarshal(b []byte, fm *fileModel) error {
	return yaml.Unmarshal(b, fm)
}
