// Package apperr defines the failure kinds a guse command can end with.
//
// Every failure that reaches the user is an *Error carrying a Kind, a
// user-safe message and (optionally) the underlying cause. The message is
// what main prints; the cause chain only goes to the debug log.
package apperr

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindStoreUnavailable     Kind = "store_unavailable"
	KindSSHConfigUnavailable Kind = "ssh_config_unavailable"
	KindDuplicateProfile     Kind = "duplicate_profile"
	KindProfileNotFound      Kind = "profile_not_found"
	KindNoProfilesDefined    Kind = "no_profiles_defined"
	KindNotAGitRepository    Kind = "not_a_git_repository"
	KindRemoteRewriteFailed  Kind = "remote_rewrite_failed"
	KindInvalidProfile       Kind = "invalid_profile"
	KindInvalidHost          Kind = "invalid_host"
	KindKeyGeneration        Kind = "key_generation"
	KindSelectionRequired    Kind = "selection_required"
	KindCancelled            Kind = "cancelled"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable}
	ErrSSHConfigUnavailable = &Error{Kind: KindSSHConfigUnavailable}
	ErrDuplicateProfile     = &Error{Kind: KindDuplicateProfile}
	ErrProfileNotFound      = &Error{Kind: KindProfileNotFound}
	ErrNoProfilesDefined    = &Error{Kind: KindNoProfilesDefined}
	ErrNotAGitRepository    = &Error{Kind: KindNotAGitRepository}
	ErrRemoteRewriteFailed  = &Error{Kind: KindRemoteRewriteFailed}
	ErrInvalidProfile       = &Error{Kind: KindInvalidProfile}
	ErrInvalidHost          = &Error{Kind: KindInvalidHost}
	ErrKeyGeneration        = &Error{Kind: KindKeyGeneration}
	ErrSelectionRequired    = &Error{Kind: KindSelectionRequired}
	ErrCancelled            = &Error{Kind: KindCancelled}
)

// Error separates a user-safe message from the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if strings.TrimSpace(msg) == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns a message safe to show on the terminal.
func UserMessage(err error, redact bool) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		msg = "operation failed"
	}
	if redact {
		return RedactMessage(msg)
	}
	return msg
}

// DebugMessage returns the full cause chain, one cause per line, for logs.
func DebugMessage(err error) string {
	if err == nil {
		return ""
	}
	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ae, ok := e.(*Error); ok {
			parts = append(parts, fmt.Sprintf("[%s] %s", ae.Kind, ae.Msg))
			continue
		}
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// RedactMessage replaces the user's home directory with "~".
func RedactMessage(msg string) string {
	if msg == "" {
		return msg
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return strings.ReplaceAll(msg, home, "~")
	}
	return msg
}
