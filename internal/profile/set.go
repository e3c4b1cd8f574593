// Package profile holds the named Git identity profiles and the default
// marker, in memory (Set) and on disk (Store).
package profile

import (
	"regexp"
	"sort"
	"strings"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/model"
	"github.com/guse-cli/guse/internal/util"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Set is the in-memory profile collection. The zero value is empty and
// ready to use.
type Set struct {
	profiles map[string]model.Profile
	def      string
}

// NewSet builds a Set from stored data. The default marker is kept even if
// it names no profile; see DanglingDefault.
func NewSet(profiles map[string]model.Profile, def string) *Set {
	s := &Set{profiles: make(map[string]model.Profile, len(profiles)), def: def}
	for id, p := range profiles {
		s.profiles[id] = p
	}
	return s
}

// Len returns the number of profiles.
func (s *Set) Len() int { return len(s.profiles) }

// IDs returns the profile identifiers in sorted order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns every profile in identifier order.
func (s *Set) List() []model.NamedProfile {
	out := make([]model.NamedProfile, 0, len(s.profiles))
	for _, id := range s.IDs() {
		out = append(out, model.NamedProfile{ID: id, Profile: s.profiles[id], Default: id == s.def})
	}
	return out
}

// Has reports whether id is stored.
func (s *Set) Has(id string) bool {
	_, ok := s.profiles[id]
	return ok
}

// Get returns the profile stored under id.
func (s *Set) Get(id string) (model.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, notFound(id)
	}
	return p, nil
}

// Add stores a new profile.
func (s *Set) Add(id string, p model.Profile) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := Validate(p); err != nil {
		return err
	}
	if s.Has(id) {
		return apperr.New(apperr.KindDuplicateProfile, "profile %q already exists", id)
	}
	if s.profiles == nil {
		s.profiles = map[string]model.Profile{}
	}
	s.profiles[id] = p
	return nil
}

// Update replaces an existing profile in place.
func (s *Set) Update(id string, p model.Profile) error {
	if !s.Has(id) {
		return notFound(id)
	}
	if err := Validate(p); err != nil {
		return err
	}
	s.profiles[id] = p
	return nil
}

// Delete removes a profile. It reports whether the removed profile was the
// default, in which case the marker is cleared.
func (s *Set) Delete(id string) (wasDefault bool, err error) {
	if !s.Has(id) {
		return false, notFound(id)
	}
	delete(s.profiles, id)
	if s.def == id {
		s.def = ""
		return true, nil
	}
	return false, nil
}

// Default returns the default marker, which may be empty.
func (s *Set) Default() string { return s.def }

// SetDefault marks id as the default profile.
func (s *Set) SetDefault(id string) error {
	if !s.Has(id) {
		return notFound(id)
	}
	s.def = id
	return nil
}

// UnsetDefault clears the default marker.
func (s *Set) UnsetDefault() { s.def = "" }

// DanglingDefault reports a default marker that names no stored profile.
func (s *Set) DanglingDefault() (string, bool) {
	if s.def == "" || s.Has(s.def) {
		return "", false
	}
	return s.def, true
}

// MatchIdentity returns the first profile, in identifier order, whose name
// and email equal the given identity.
func (s *Set) MatchIdentity(id model.Identity) (model.NamedProfile, bool) {
	if id.IsEmpty() {
		return model.NamedProfile{}, false
	}
	for _, np := range s.List() {
		if id.Matches(np.Profile) {
			return np, true
		}
	}
	return model.NamedProfile{}, false
}

// Profiles returns a copy of the stored map.
func (s *Set) Profiles() map[string]model.Profile {
	out := make(map[string]model.Profile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out
}

// ValidateID checks a profile identifier.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.New(apperr.KindInvalidProfile, "profile id cannot be empty")
	}
	if util.HasWhitespace(id) {
		return apperr.New(apperr.KindInvalidProfile, "profile id %q cannot contain whitespace", id)
	}
	return nil
}

// Validate checks the profile fields.
func Validate(p model.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.New(apperr.KindInvalidProfile, "name cannot be empty")
	}
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}
	if strings.TrimSpace(p.SSHHost) == "" {
		return apperr.New(apperr.KindInvalidProfile, "SSH host cannot be empty")
	}
	return nil
}

// ValidateEmail checks the address shape only.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperr.New(apperr.KindInvalidProfile, "invalid email format: %q", email)
	}
	return nil
}

func notFound(id string) error {
	return apperr.New(apperr.KindProfileNotFound, "profile %q not found", id)
}
