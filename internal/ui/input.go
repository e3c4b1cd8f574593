package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type inputKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

var inputKeys = inputKeyMap{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

type inputModel struct {
	label     string
	def       string
	validate  func(string) error
	input     textinput.Model
	value     string
	errMsg    string
	done      bool
	cancelled bool
}

func newInputModel(label, def string, validate func(string) error) inputModel {
	ti := textinput.New()
	ti.Placeholder = def
	ti.CharLimit = 256
	ti.Width = 48
	ti.Focus()
	return inputModel{label: label, def: def, validate: validate, input: ti}
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, inputKeys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, inputKeys.Submit):
			v := strings.TrimSpace(m.input.Value())
			if v == "" {
				v = m.def
			}
			if m.validate != nil {
				if err := m.validate(v); err != nil {
					m.errMsg = err.Error()
					return m, nil
				}
			}
			m.value = v
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.errMsg = ""
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render(m.label) + "\n")
	b.WriteString("  " + m.input.View() + "\n")
	if m.errMsg != "" {
		b.WriteString(ErrorStyle.Render("Error: "+m.errMsg) + "\n")
	}
	b.WriteString(MutedStyle.Render("enter submit | esc cancel") + "\n")
	return b.String()
}
