package model

// Profile is one Git identity: the user.name/user.email pair written to a
// repository and the SSH Host alias its origin remote is routed through.
type Profile struct {
	Name    string `toml:"name" yaml:"name" json:"name"`
	Email   string `toml:"email" yaml:"email" json:"email"`
	SSHHost string `toml:"ssh_host" yaml:"ssh_host" json:"ssh_host"`
}

// NamedProfile pairs a profile with the identifier it is stored under.
type NamedProfile struct {
	ID string `json:"id"`
	Profile
	Default bool `json:"default,omitempty"`
}

// Identity is the effective user.name/user.email of a repository.
type Identity struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// Matches reports whether p carries exactly this name and email.
func (id Identity) Matches(p Profile) bool {
	return p.Name == id.Name && p.Email == id.Email
}

// IsEmpty reports whether neither name nor email is configured.
func (id Identity) IsEmpty() bool {
	return id.Name == "" && id.Email == ""
}

// HostEntry is one Host block of the SSH client config.
type HostEntry struct {
	Alias        string   `json:"alias"`
	Patterns     []string `json:"patterns,omitempty"`
	HostName     string   `json:"host_name,omitempty"`
	User         string   `json:"user,omitempty"`
	Port         int      `json:"port,omitempty"`
	IdentityFile string   `json:"identity_file,omitempty"`
	ProxyJump    string   `json:"proxy_jump,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// DisplayTarget returns HostName, falling back to the alias.
func (h HostEntry) DisplayTarget() string {
	if h.HostName != "" {
		return h.HostName
	}
	return h.Alias
}
