// Package appconfig resolves guse settings and the locations of its files.
//
// Precedence, lowest first: built-in defaults, the settings file
// ($XDG_CONFIG_HOME/guse/config.yaml), GUSE_* environment variables, and
// finally command-line flags bound by the caller.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/guse-cli/guse/internal/util"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName      = "guse"
	envPrefix    = "GUSE"
	settingsFile = "config.yaml"
)

// Settings keys, shared with flag bindings.
const (
	KeyProfilesFile = "profiles_file"
	KeySSHConfig    = "ssh_config"
	KeyLogLevel     = "log_level"
	KeyBackupKeep   = "backup.keep"
)

// BackupSettings controls profile store backups.
type BackupSettings struct {
	Keep int `mapstructure:"keep"`
}

// Settings holds application-level configuration.
type Settings struct {
	ProfilesFile string         `mapstructure:"profiles_file"`
	SSHConfig    string         `mapstructure:"ssh_config"`
	LogLevel     string         `mapstructure:"log_level"`
	Backup       BackupSettings `mapstructure:"backup"`
}

// Default returns the default settings with "~" unexpanded.
func Default() Settings {
	return Settings{
		ProfilesFile: "~/" + util.DefaultProfilesFile,
		SSHConfig:    "~/.ssh/config",
		LogLevel:     "warn",
		Backup:       BackupSettings{Keep: util.DefaultBackupKeep},
	}
}

// ConfigDir returns the application config directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/guse.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// StatePath returns the path of a state file (history, journal) inside
// ConfigDir.
func StatePath(name string) (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// Binding maps a settings key to a command-line flag name.
type Binding struct {
	Key  string
	Flag string
}

// DefaultBindings are the persistent flags of the root command.
var DefaultBindings = []Binding{
	{Key: KeyProfilesFile, Flag: "config"},
	{Key: KeySSHConfig, Flag: "ssh-config"},
	{Key: KeyLogLevel, Flag: "log-level"},
}

// Load resolves settings. flags may be nil; bindings naming flags that are
// absent from flags are skipped.
func Load(flags *pflag.FlagSet, bindings ...Binding) (Settings, error) {
	v := viper.New()
	def := Default()
	v.SetDefault(KeyProfilesFile, def.ProfilesFile)
	v.SetDefault(KeySSHConfig, def.SSHConfig)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyBackupKeep, def.Backup.Keep)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, err := ConfigDir()
	if err != nil {
		return Settings{}, err
	}
	path := filepath.Join(dir, settingsFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("stat %s: %w", path, err)
	}

	if flags != nil {
		for _, b := range bindings {
			f := flags.Lookup(b.Flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(b.Key, f); err != nil {
				return Settings{}, fmt.Errorf("bind flag %s: %w", b.Flag, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return normalize(s), nil
}

func normalize(s Settings) Settings {
	def := Default()
	if strings.TrimSpace(s.ProfilesFile) == "" {
		s.ProfilesFile = def.ProfilesFile
	}
	if strings.TrimSpace(s.SSHConfig) == "" {
		s.SSHConfig = def.SSHConfig
	}
	if strings.TrimSpace(s.LogLevel) == "" {
		s.LogLevel = def.LogLevel
	}
	if s.Backup.Keep < 0 {
		s.Backup.Keep = 0
	}
	s.ProfilesFile = util.ExpandHome(s.ProfilesFile)
	s.SSHConfig = util.ExpandHome(s.SSHConfig)
	return s
}
