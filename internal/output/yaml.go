package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/outpost-tools/outpost-ctl/internal/config"
)

// YAMLFormatter formats environment status as YAML.
type YAMLFormatter struct{}

// FormatEnvironment formats a single environment as YAML.
func (f *YAMLFormatter) FormatEnvironment(status *config.EnvironmentStatus) (string, error) {
	data, err := yaml.Marshal(status)
	if err != nil {
		return "", fmt.Errorf("failed to marshal environment to YAML: %w", err)
	}
	return string(data), nil
}

// FormatEnvironmentList formats a list of environments as a YAML stream
// (multiple documents separated by ---).
func (f *YAMLFormatter) FormatEnvironmentList(statuses []*config.EnvironmentStatus) (string, error) {
	if len(statuses) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, status := range statuses {
		data, err := yaml.Marshal(status)
		if err != nil {
			return "", fmt.Errorf("failed to marshal environment %s to YAML: %w", status.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}
