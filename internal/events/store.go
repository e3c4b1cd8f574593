// Package events keeps an append-only journal of profile changes and
// switches in events.jsonl.
package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guse-cli/guse/internal/appconfig"
)

// FileName is the journal file inside the config directory.
const FileName = "events.jsonl"

// Event types.
const (
	ProfileAdded    = "profile_added"
	ProfileUpdated  = "profile_updated"
	ProfileDeleted  = "profile_deleted"
	DefaultSet      = "default_set"
	DefaultUnset    = "default_unset"
	SwitchApplied   = "switch_applied"
	SwitchFailed    = "switch_failed"
	SSHHostAdded    = "ssh_host_added"
	SSHKeyGenerated = "ssh_key_generated"
)

// Event is one journal record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	ProfileID string    `json:"profile,omitempty"`
	Repo      string    `json:"repo,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Query controls event filtering and bounded reads.
type Query struct {
	ProfileID string
	Type      string
	Since     time.Time
	Limit     int
}

// Store provides append/read access to the journal.
type Store struct {
	path string
}

// NewStore returns a journal at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Default returns the journal in the config directory.
func Default() (*Store, error) {
	path, err := appconfig.StatePath(FileName)
	if err != nil {
		return nil, err
	}
	return NewStore(path), nil
}

// Append writes a single event as one JSON line.
func (s *Store) Append(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = f.Write(append(b, '\n'))
	return err
}

// Read returns events in append order, filtered by q. With a limit only
// the newest matches are kept.
func (s *Store) Read(q Query) ([]Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			continue
		}
		if !matches(evt, q) {
			continue
		}
		out = append(out, evt)
		if q.Limit > 0 && len(out) > q.Limit {
			out = out[len(out)-q.Limit:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return out, nil
}

func matches(evt Event, q Query) bool {
	if strings.TrimSpace(q.ProfileID) != "" && evt.ProfileID != q.ProfileID {
		return false
	}
	if strings.TrimSpace(q.Type) != "" && evt.Type != q.Type {
		return false
	}
	if !q.Since.IsZero() && evt.Timestamp.Before(q.Since) {
		return false
	}
	return true
}

// Clear removes the journal.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
