package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Step types understood by the provisioner.
const (
	StepPackage = "package"
	StepFile    = "file"
	StepCommand = "command"
)

// Descriptor declares an environment: its base image, resources,
// connection parameters, and ordered provisioning steps.
type Descriptor struct {
	Name       string     `toml:"-"`
	Image      string     `toml:"image"`
	Resources  Resources  `toml:"resources"`
	Connection Connection `toml:"connection"`
	Steps      []StepSpec `toml:"step"`
}

// Resources declares disk and memory requirements for the environment.
type Resources struct {
	DiskMB   int64 `toml:"disk_mb"`
	MemoryMB int64 `toml:"memory_mb"`
}

// Connection declares how to reach the environment once it is up.
type Connection struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	User string `toml:"user"`
}

// StepSpec is one provisioning step as declared in the descriptor.
// Exactly one of the type-specific field groups applies, selected by Type.
type StepSpec struct {
	Type     string   `toml:"type"`
	Packages []string `toml:"packages"` // type = "package"
	Path     string   `toml:"path"`     // type = "file"
	Content  string   `toml:"content"`  // type = "file"
	Mode     string   `toml:"mode"`     // type = "file", octal, default 0644
	Command  string   `toml:"command"`  // type = "command"
	Creates  string   `toml:"creates"`  // type = "command", optional idempotence guard
}

// Describe returns a short human-readable form of the step, used in
// progress output and failure messages.
func (s StepSpec) Describe() string {
	switch s.Type {
	case StepPackage:
		return fmt.Sprintf("install %s", strings.Join(s.Packages, " "))
	case StepFile:
		return fmt.Sprintf("write %s", s.Path)
	case StepCommand:
		return fmt.Sprintf("run %s", s.Command)
	default:
		return s.Type
	}
}

// Validate checks the descriptor for structural problems
func (d *Descriptor) Validate() error {
	if d.Image == "" {
		return fmt.Errorf("descriptor must declare an image")
	}

	for i, step := range d.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	if d.Connection.Port < 0 || d.Connection.Port > 65535 {
		return fmt.Errorf("invalid connection port %d", d.Connection.Port)
	}

	return nil
}

func (s StepSpec) validate() error {
	switch s.Type {
	case StepPackage:
		if len(s.Packages) == 0 {
			return fmt.Errorf("package step requires at least one package")
		}
	case StepFile:
		if s.Path == "" {
			return fmt.Errorf("file step requires a path")
		}
		if !filepath.IsAbs(s.Path) {
			return fmt.Errorf("file step path must be absolute, got %q", s.Path)
		}
	case StepCommand:
		if s.Command == "" {
			return fmt.Errorf("command step requires a command")
		}
	case "":
		return fmt.Errorf("step is missing a type")
	default:
		return fmt.Errorf("unknown step type %q", s.Type)
	}
	return nil
}

// applyDefaults fills in connection defaults for fields the descriptor
// leaves unset.
func (d *Descriptor) applyDefaults() {
	if d.Connection.Host == "" {
		d.Connection.Host = "127.0.0.1"
	}
	if d.Connection.Port == 0 {
		d.Connection.Port = DefaultSSHPort
	}
	if d.Connection.User == "" {
		d.Connection.User = DefaultSSHUser
	}
}

// LoadDescriptor loads and validates an environment descriptor
func LoadDescriptor(environmentsDir, name string) (*Descriptor, error) {
	path, err := safePath(environmentsDir, name, ".toml")
	if err != nil {
		return nil, fmt.Errorf("invalid environment name: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor %s: %w", name, err)
	}

	var desc Descriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", name, err)
	}
	desc.Name = name

	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", name, err)
	}

	desc.applyDefaults()

	return &desc, nil
}

// ListDescriptors returns all environment descriptors
func ListDescriptors(environmentsDir string) ([]*Descriptor, error) {
	entries, err := os.ReadDir(environmentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read environments directory: %w", err)
	}

	var descriptors []*Descriptor
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		desc, err := LoadDescriptor(environmentsDir, name)
		if err != nil {
			continue // Skip invalid descriptors
		}
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

// DescriptorExists checks if a descriptor exists for an environment
func DescriptorExists(environmentsDir, name string) bool {
	path, err := safePath(environmentsDir, name, ".toml")
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
