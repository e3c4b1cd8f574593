// Package switcher picks the profile a switch applies and writes it to a
// repository.
package switcher

import (
	"context"
	"fmt"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/git"
	"github.com/guse-cli/guse/internal/logging"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/profile"
	"github.com/guse-cli/guse/internal/util"
)

// Repository is the part of a git work tree a switch touches.
type Repository interface {
	Identity(ctx context.Context) (model.Identity, error)
	SetIdentity(ctx context.Context, name, email string) error
	RemoteURL(ctx context.Context, remote string) (string, error)
	SetRemoteURL(ctx context.Context, remote, url string) error
}

// Chooser asks the user to pick one of profiles and returns its id.
type Chooser func(profiles []model.NamedProfile) (string, error)

// Resolve returns the id a switch should apply: the explicit id, else the
// default, else the user's choice. A nil choose means no prompting is
// possible.
func Resolve(set *profile.Set, id string, choose Chooser) (string, error) {
	if id != "" {
		if !set.Has(id) {
			return "", apperr.New(apperr.KindProfileNotFound, "profile %q not found", id)
		}
		return id, nil
	}
	if set.Len() == 0 {
		return "", apperr.New(apperr.KindNoProfilesDefined, "no profiles defined; add one with 'guse add'")
	}
	if def := set.Default(); def != "" {
		if !set.Has(def) {
			return "", apperr.New(apperr.KindProfileNotFound, "default profile %q not found", def)
		}
		return def, nil
	}
	if choose == nil {
		return "", apperr.New(apperr.KindSelectionRequired, "no default profile set; specify a profile id")
	}
	chosen, err := choose(set.List())
	if err != nil {
		return "", err
	}
	if !set.Has(chosen) {
		return "", apperr.New(apperr.KindProfileNotFound, "profile %q not found", chosen)
	}
	return chosen, nil
}

// Options controls Apply.
type Options struct {
	// Remote is the remote to rewrite; empty means origin.
	Remote string
	// SkipRemote applies the identity only.
	SkipRemote bool
}

// Result describes what Apply changed.
type Result struct {
	ProfileID     string        `json:"profile"`
	Profile       model.Profile `json:"identity"`
	OldRemote     string        `json:"old_remote,omitempty"`
	NewRemote     string        `json:"new_remote,omitempty"`
	RemoteUpdated bool          `json:"remote_updated"`
}

// Applier writes profiles to a repository.
type Applier struct {
	Repo Repository
	Log  *logging.Logger
}

// Apply sets the repository-local identity and then points the remote at
// the profile's SSH host alias. The identity stays applied when the remote
// rewrite fails; the returned Result reflects what was written.
func (a Applier) Apply(ctx context.Context, id string, p model.Profile, opts Options) (Result, error) {
	res := Result{ProfileID: id, Profile: p}
	if err := a.Repo.SetIdentity(ctx, p.Name, p.Email); err != nil {
		return res, fmt.Errorf("apply identity: %w", err)
	}
	a.Log.Info().Str("profile", id).Msg("identity applied")
	if opts.SkipRemote {
		return res, nil
	}

	remote := util.DefaultString(opts.Remote, util.DefaultRemote)
	old, err := a.Repo.RemoteURL(ctx, remote)
	if err != nil {
		return res, err
	}
	res.OldRemote = old
	next, err := git.RewriteRemote(old, p.SSHHost)
	if err != nil {
		return res, err
	}
	res.NewRemote = next
	if next == old {
		return res, nil
	}
	if err := a.Repo.SetRemoteURL(ctx, remote, next); err != nil {
		return res, err
	}
	res.RemoteUpdated = true
	a.Log.Info().Str("profile", id).Str("from", old).Str("to", next).Msg("remote rewritten")
	return res, nil
}

// Report is the outcome of show.
type Report struct {
	Identity model.Identity      `json:"identity"`
	Matched  bool                `json:"matched"`
	Profile  *model.NamedProfile `json:"profile,omitempty"`
	Default  string              `json:"default_profile,omitempty"`
}

// Show matches the repository's effective identity against set.
func Show(ctx context.Context, repo Repository, set *profile.Set) (Report, error) {
	id, err := repo.Identity(ctx)
	if err != nil {
		return Report{}, err
	}
	r := Report{Identity: id, Default: set.Default()}
	if np, ok := set.MatchIdentity(r.Identity); ok {
		r.Matched = true
		r.Profile = &np
	}
	return r, nil
}
