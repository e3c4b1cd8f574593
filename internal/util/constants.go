// Package util provides small helpers and constants shared by the guse
// packages. It imports nothing from internal/* so any package may use it.
package util

const (
	// MaxIncludeDepth bounds nested Include directives in the SSH client
	// config. Cycles through distinct paths (symlinks) still terminate here.
	// Used by internal/sshconfig.
	MaxIncludeDepth = 16

	// DefaultProfilesFile is the profile store location relative to the
	// user's home directory.
	DefaultProfilesFile = ".git-switch-profiles.toml"

	// DefaultBackupKeep is how many timestamped backups of the profile store
	// are retained after each save.
	DefaultBackupKeep = 5

	// DefaultSSHPort is omitted when writing Host blocks.
	DefaultSSHPort = 22

	// DefaultRemote is the remote rewritten by switch.
	DefaultRemote = "origin"
)
