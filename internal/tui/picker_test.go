package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/outpost-tools/outpost-ctl/internal/config"
)

func testEnvironment(name, state string) *config.EnvironmentStatus {
	return &config.EnvironmentStatus{
		Name:      name,
		State:     state,
		Image:     "base-noble",
		Host:      "127.0.0.1",
		Port:      2222,
		User:      "outpost",
		UpdatedAt: time.Now().Format(time.RFC3339),
	}
}

func TestEnvironmentItemMethods(t *testing.T) {
	item := environmentItem{status: testEnvironment("dev", "ready")}

	t.Run("Title", func(t *testing.T) {
		if got := item.Title(); got != "dev" {
			t.Errorf("Title() = %q, want %q", got, "dev")
		}
	})

	t.Run("FilterValue", func(t *testing.T) {
		if got := item.FilterValue(); got != "dev" {
			t.Errorf("FilterValue() = %q, want %q", got, "dev")
		}
	})

	t.Run("Description", func(t *testing.T) {
		desc := item.Description()
		if !strings.Contains(desc, "✓") {
			t.Error("Description should contain ready state icon")
		}
		if !strings.Contains(desc, "base-noble") {
			t.Error("Description should contain image")
		}
		if !strings.Contains(desc, "outpost@127.0.0.1:2222") {
			t.Error("Description should contain endpoint")
		}
	})

	t.Run("Description with empty state", func(t *testing.T) {
		item := environmentItem{status: testEnvironment("dev", "")}
		if !strings.Contains(item.Description(), "not-started") {
			t.Error("Description should default to not-started")
		}
	})
}

func TestEnvironmentItemStateIcons(t *testing.T) {
	tests := []struct {
		state string
		icon  string
	}{
		{"ready", "✓"},
		{"failed", "✗"},
		{"fetching", "●"},
		{"", "○"},
	}

	for _, tt := range tests {
		t.Run(tt.icon, func(t *testing.T) {
			item := environmentItem{status: testEnvironment("dev", tt.state)}
			desc := item.Description()
			if !strings.Contains(desc, tt.icon) {
				t.Errorf("Description for state %q should contain %q", tt.state, tt.icon)
			}
		})
	}
}

func TestModelKeyHandling(t *testing.T) {
	env := testEnvironment("dev", "ready")

	t.Run("quit with q", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		model := newModel.(Model)

		if model.result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", model.result.Action)
		}
		if !model.quitting {
			t.Error("Model should be quitting")
		}
		if cmd == nil {
			t.Error("Should return tea.Quit command")
		}
	})

	t.Run("quit with esc", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		model := newModel.(Model)

		if model.result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", model.result.Action)
		}
	})

	t.Run("connect with enter", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model := newModel.(Model)

		if model.result.Action != ActionConnect {
			t.Errorf("Action = %v, want ActionConnect", model.result.Action)
		}
		if model.result.Environment == nil || model.result.Environment.Name != "dev" {
			t.Errorf("Environment = %v, want dev", model.result.Environment)
		}
	})

	t.Run("up with u", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
		model := newModel.(Model)

		if model.result.Action != ActionUp {
			t.Errorf("Action = %v, want ActionUp", model.result.Action)
		}
	})

	t.Run("destroy with d", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
		model := newModel.(Model)

		if model.result.Action != ActionDestroy {
			t.Errorf("Action = %v, want ActionDestroy", model.result.Action)
		}
	})

	t.Run("window size update", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		newModel, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
		model := newModel.(Model)

		if model.width != 100 {
			t.Errorf("Width = %d, want 100", model.width)
		}
		if model.height != 50 {
			t.Errorf("Height = %d, want 50", model.height)
		}
		if cmd != nil {
			t.Error("Window size update should not return a command")
		}
	})
}

func TestModelInit(t *testing.T) {
	m := Model{}
	if cmd := m.Init(); cmd != nil {
		t.Error("Init() should return nil")
	}
}

func TestModelView(t *testing.T) {
	env := testEnvironment("dev", "ready")

	t.Run("normal view contains help", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		view := m.View()

		if !strings.Contains(view, "[enter] Connect") {
			t.Error("View should contain connect help")
		}
		if !strings.Contains(view, "[u] Up") {
			t.Error("View should contain up help")
		}
		if !strings.Contains(view, "[q] Quit") {
			t.Error("View should contain quit help")
		}
	})

	t.Run("quitting view is empty", func(t *testing.T) {
		m := NewPicker([]*config.EnvironmentStatus{env})
		m.quitting = true
		if view := m.View(); view != "" {
			t.Errorf("Quitting view should be empty, got %q", view)
		}
	})
}

func TestModelResult(t *testing.T) {
	m := Model{
		result: PickerResult{
			Action:      ActionConnect,
			Environment: testEnvironment("dev", "ready"),
		},
	}

	result := m.Result()
	if result.Action != ActionConnect {
		t.Errorf("Action = %v, want ActionConnect", result.Action)
	}
	if result.Environment.Name != "dev" {
		t.Errorf("Environment.Name = %q, want %q", result.Environment.Name, "dev")
	}
}

func TestRunPickerEmpty(t *testing.T) {
	result, err := RunPicker(nil)
	if err != nil {
		t.Fatalf("RunPicker with no environments failed: %v", err)
	}
	if result.Action != ActionQuit {
		t.Errorf("Empty list should return ActionQuit, got %v", result.Action)
	}
}

func TestSimplePicker(t *testing.T) {
	t.Run("empty environments", func(t *testing.T) {
		output := SimplePicker(nil)

		if !strings.Contains(output, "No environments found") {
			t.Error("Should indicate no environments found")
		}
		if !strings.Contains(output, "outpost-ctl up") {
			t.Error("Should show how to start an environment")
		}
	})

	t.Run("with environments", func(t *testing.T) {
		environments := []*config.EnvironmentStatus{
			testEnvironment("dev", "ready"),
			testEnvironment("staging", "failed"),
		}

		output := SimplePicker(environments)

		if !strings.Contains(output, "Outpost") {
			t.Error("Should contain title")
		}
		if !strings.Contains(output, "dev") {
			t.Error("Should contain first environment name")
		}
		if !strings.Contains(output, "staging") {
			t.Error("Should contain second environment name")
		}
		if !strings.Contains(output, "base-noble") {
			t.Error("Should contain image")
		}
		if !strings.Contains(output, "2222") {
			t.Error("Should contain port number")
		}
	})
}

func TestActionConstants(t *testing.T) {
	// Verify action constants have distinct values
	actions := []Action{ActionNone, ActionConnect, ActionUp, ActionDestroy, ActionQuit}
	seen := make(map[Action]bool)

	for _, a := range actions {
		if seen[a] {
			t.Errorf("Duplicate action value: %v", a)
		}
		seen[a] = true
	}
}
