// Package ui holds the interactive prompts and the table rendering used by
// the CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guse-cli/guse/internal/apperr"
	"golang.org/x/term"
)

// Prompter asks the user for input. Commands only prompt through this
// interface so tests can script the answers.
type Prompter interface {
	Select(title string, items []Item) (string, error)
	Input(label, def string, validate func(string) error) (string, error)
	Password(label string) (string, error)
	Confirm(label string, def bool) (bool, error)
}

// Interactive reports whether both streams are terminals.
func Interactive(in io.Reader, out io.Writer) bool {
	fi, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(fi.Fd())) {
		return false
	}
	fo, ok := out.(*os.File)
	return ok && term.IsTerminal(int(fo.Fd()))
}

// Terminal prompts on a real terminal. Prompts render to Out, which should
// be stderr so stdout stays scriptable.
type Terminal struct {
	In  *os.File
	Out io.Writer
}

// NewTerminal prompts on stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

func (t *Terminal) run(m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithInput(t.In), tea.WithOutput(t.Out))
	return p.Run()
}

// Select shows a filterable list and returns the chosen item's Value.
func (t *Terminal) Select(title string, items []Item) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to choose from")
	}
	final, err := t.run(newSelectModel(title, items))
	if err != nil {
		return "", err
	}
	m := final.(selectModel)
	if m.cancelled || m.chosen == nil {
		return "", cancelled()
	}
	return m.chosen.Value, nil
}

// Input reads one line. An empty answer yields def.
func (t *Terminal) Input(label, def string, validate func(string) error) (string, error) {
	final, err := t.run(newInputModel(label, def, validate))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.cancelled {
		return "", cancelled()
	}
	return m.value, nil
}

// Password reads a line without echo.
func (t *Terminal) Password(label string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", label)
	b, err := term.ReadPassword(int(t.In.Fd()))
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, err := t.Input(fmt.Sprintf("%s [%s]", label, hint), "", func(s string) error {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "y", "yes", "n", "no":
			return nil
		}
		return fmt.Errorf("answer y or n")
	})
	if err != nil {
		return false, err
	}
	return ParseYesNo(answer, def), nil
}

// ParseYesNo interprets a confirmation answer; blank means def.
func ParseYesNo(answer string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

func cancelled() error {
	return apperr.New(apperr.KindCancelled, "cancelled")
}
