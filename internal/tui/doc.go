// Package tui provides terminal user interface components for outpost-ctl.
//
// This package uses the Bubble Tea framework to create interactive
// terminal interfaces, primarily the environment picker shown when
// `outpost-ctl ssh` is run without a name.
//
// # Environment Picker
//
// The picker lists known environments with their lifecycle state:
//
//	result, err := tui.RunPicker(environments)
//	switch result.Action {
//	case tui.ActionConnect:
//	    // Open a session to result.Environment
//	case tui.ActionUp:
//	    // Drive result.Environment to ready
//	case tui.ActionDestroy:
//	    // Forget result.Environment's run state
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
