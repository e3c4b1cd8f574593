// Package history remembers when each profile was last switched to.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/guse-cli/guse/internal/appconfig"
	"github.com/guse-cli/guse/internal/model"
)

// FileName is the history file inside the config directory.
const FileName = "history.json"

// Use is the last switch to a profile.
type Use struct {
	At   time.Time `json:"at"`
	Repo string    `json:"repo,omitempty"`
}

type document struct {
	LastUsed map[string]Use `json:"last_used"`
}

// Store reads and writes the history file.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a store at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Default returns the store in the config directory.
func Default() (*Store, error) {
	path, err := appconfig.StatePath(FileName)
	if err != nil {
		return nil, err
	}
	return NewStore(path), nil
}

// Touch records a switch to profileID in repo.
func (s *Store) Touch(profileID, repo string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.LastUsed[profileID] = Use{At: s.now().UTC(), Repo: repo}
	return s.save(doc)
}

// Forget drops profileID, e.g. after it was deleted.
func (s *Store) Forget(profileID string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.LastUsed[profileID]; !ok {
		return nil
	}
	delete(doc.LastUsed, profileID)
	return s.save(doc)
}

// LastUsed returns the last switch per profile id.
func (s *Store) LastUsed() (map[string]Use, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.LastUsed, nil
}

// SortRecent returns a copy of profiles, most recently used first, then by id.
func SortRecent(profiles []model.NamedProfile, lastUsed map[string]Use) []model.NamedProfile {
	out := append([]model.NamedProfile(nil), profiles...)
	sort.SliceStable(out, func(i, j int) bool {
		ti := lastUsed[out[i].ID].At
		tj := lastUsed[out[j].ID].At
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) load() (document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return document{LastUsed: map[string]Use{}}, nil
		}
		return document{}, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		// A corrupt history only loses ordering hints.
		return document{LastUsed: map[string]Use{}}, nil
	}
	if doc.LastUsed == nil {
		doc.LastUsed = map[string]Use{}
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}
