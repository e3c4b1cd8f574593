package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Item is one choice in a Select prompt.
type Item struct {
	Label  string
	Detail string
	Value  string
}

func (i Item) Title() string       { return i.Label }
func (i Item) Description() string { return i.Detail }
func (i Item) FilterValue() string { return i.Label + " " + i.Detail }

type selectKeyMap struct {
	Choose key.Binding
	Cancel key.Binding
}

var selectKeys = selectKeyMap{
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c", "q"), key.WithHelp("esc", "cancel")),
}

type selectModel struct {
	list      list.Model
	items     []Item
	chosen    *Item
	cancelled bool
}

func newSelectModel(title string, items []Item) selectModel {
	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = it
	}
	height := len(items)*3 + 6
	if height > 24 {
		height = 24
	}
	l := list.New(listItems, list.NewDefaultDelegate(), 64, height)
	l.Title = title
	l.Styles.Title = TitleStyle
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{selectKeys.Choose}
	}
	return selectModel{list: l, items: items}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		// While filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, selectKeys.Choose):
			if it, ok := m.list.SelectedItem().(Item); ok {
				m.chosen = &it
			}
			return m, tea.Quit
		case key.Matches(msg, selectKeys.Cancel):
			if m.list.FilterState() == list.FilterApplied {
				break
			}
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() string {
	if m.chosen != nil || m.cancelled {
		return ""
	}
	return m.list.View()
}
