package git

import (
	"github.com/gopasspw/gitconfig"
	"github.com/guse-cli/guse/internal/model"
)

// GlobalIdentity reads user.name and user.email from the user's global
// and system config files without running git. includeIf sections are
// not evaluated, so the result only suits diagnostics.
func GlobalIdentity() model.Identity {
	cs := gitconfig.New()
	cs.LoadAll("")
	return model.Identity{
		Name:  cs.Get("user.name"),
		Email: cs.Get("user.email"),
	}
}
