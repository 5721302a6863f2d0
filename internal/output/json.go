package output

import (
	"encoding/json"
	"fmt"

	"github.com/outpost-tools/outpost-ctl/internal/config"
)

// JSONFormatter formats environment status as JSON.
type JSONFormatter struct{}

// FormatEnvironment formats a single environment as JSON.
func (f *JSONFormatter) FormatEnvironment(status *config.EnvironmentStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal environment to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// FormatEnvironmentList formats a list of environments as a JSON array.
func (f *JSONFormatter) FormatEnvironmentList(statuses []*config.EnvironmentStatus) (string, error) {
	if len(statuses) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal environments to JSON: %w", err)
	}
	return string(data) + "\n", nil
}
