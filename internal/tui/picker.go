package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/outpost-tools/outpost-ctl/internal/config"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionConnect
	ActionUp
	ActionDestroy
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action      Action
	Environment *config.EnvironmentStatus
}

// environmentItem implements list.Item for environment display
type environmentItem struct {
	status *config.EnvironmentStatus
}

func (i environmentItem) Title() string {
	return i.status.Name
}

func (i environmentItem) Description() string {
	state := i.status.State
	if state == "" {
		state = "not-started"
	}

	stateIcon := "●"
	switch state {
	case "ready":
		stateIcon = "✓"
	case "failed":
		stateIcon = "✗"
	case "not-started":
		stateIcon = "○"
	}

	endpoint := "-"
	if i.status.Host != "" {
		endpoint = fmt.Sprintf("%s@%s:%d", i.status.User, i.status.Host, i.status.Port)
	}

	return fmt.Sprintf("%s %s | %s | %s | %s",
		stateIcon,
		state,
		i.status.Image,
		endpoint,
		i.status.Age(),
	)
}

func (i environmentItem) FilterValue() string {
	return i.status.Name
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the environment picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new environment picker
func NewPicker(environments []*config.EnvironmentStatus) Model {
	items := make([]list.Item, len(environments))
	for i, env := range environments {
		items[i] = environmentItem{status: env}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "Outpost - Select Environment"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{
		list: l,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(environmentItem); ok {
				m.result = PickerResult{
					Action:      ActionConnect,
					Environment: item.status,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "u":
			if item, ok := m.list.SelectedItem().(environmentItem); ok {
				m.result = PickerResult{
					Action:      ActionUp,
					Environment: item.status,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "d":
			if item, ok := m.list.SelectedItem().(environmentItem); ok {
				m.result = PickerResult{
					Action:      ActionDestroy,
					Environment: item.status,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Connect  [u] Up  [d] Destroy  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive environment picker
func RunPicker(environments []*config.EnvironmentStatus) (PickerResult, error) {
	if len(environments) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	m := NewPicker(environments)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive fallback that just lists environments
func SimplePicker(environments []*config.EnvironmentStatus) string {
	var sb strings.Builder

	sb.WriteString("Outpost - Environments\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(environments) == 0 {
		sb.WriteString("No environments found.\n")
		sb.WriteString("Start one with: outpost-ctl up <name>\n")
		return sb.String()
	}

	for i, env := range environments {
		state := env.State
		if state == "" {
			state = "not-started"
		}

		stateIcon := "●"
		switch state {
		case "ready":
			stateIcon = "✓"
		case "failed":
			stateIcon = "✗"
		}

		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n",
			i+1, stateIcon, env.Name, state))
		sb.WriteString(fmt.Sprintf("   Image: %s | Endpoint: %s@%s:%d\n\n",
			env.Image, env.User, env.Host, env.Port))
	}

	return sb.String()
}
