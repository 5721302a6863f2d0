package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvironmentStatus records the last-reached orchestrator state for an
// environment. It is written after every state transition and read on
// startup to decide whether cached work can be reused.
type EnvironmentStatus struct {
	Name      string            `json:"name"`
	State     string            `json:"state"`
	Image     string            `json:"image"`
	Artifacts map[string]string `json:"artifacts,omitempty"` // artifact name -> sha256
	Error     string            `json:"error,omitempty"`
	FailedAt  string            `json:"failedAt,omitempty"` // state the failure occurred in
	Host      string            `json:"host"`
	Port      int               `json:"port"`
	User      string            `json:"user"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
}

// Age returns a human-oriented description of time since the last update.
func (s *EnvironmentStatus) Age() string {
	t, err := time.Parse(time.RFC3339, s.UpdatedAt)
	if err != nil {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
}

// LoadStatus loads the status file for an environment
func LoadStatus(statusDir, name string) (*EnvironmentStatus, error) {
	path, err := safePath(statusDir, name, ".status.json")
	if err != nil {
		return nil, fmt.Errorf("invalid environment name: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no status for environment %s: %w", name, err)
	}

	var status EnvironmentStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status for %s: %w", name, err)
	}

	return &status, nil
}

// SaveStatus writes the status file for an environment
func SaveStatus(statusDir string, status *EnvironmentStatus) error {
	if err := os.MkdirAll(statusDir, 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	path, err := safePath(statusDir, status.Name, ".status.json")
	if err != nil {
		return fmt.Errorf("invalid environment name: %w", err)
	}

	status.UpdatedAt = time.Now().Format(time.RFC3339)
	if status.CreatedAt == "" {
		status.CreatedAt = status.UpdatedAt
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}

	return nil
}

// DeleteStatus removes the status file for an environment
func DeleteStatus(statusDir, name string) error {
	path, err := safePath(statusDir, name, ".status.json")
	if err != nil {
		return fmt.Errorf("invalid environment name: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListStatuses returns status records for all environments
func ListStatuses(statusDir string) ([]*EnvironmentStatus, error) {
	entries, err := os.ReadDir(statusDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	var statuses []*EnvironmentStatus
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".status.json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".status.json")
		status, err := LoadStatus(statusDir, name)
		if err != nil {
			continue
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// StatusExists reports whether a status file exists for an environment.
func StatusExists(statusDir, name string) bool {
	path, err := safePath(statusDir, name, ".status.json")
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
