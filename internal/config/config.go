package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	securejoin "github.com/cyphar/filepath-securejoin"
)

const (
	DefaultConfigDir = "/etc/outpost"
	DefaultStateDir  = "/var/lib/outpost"

	// DefaultSSHPort is the forwarded guest SSH port used when a
	// descriptor does not declare one.
	DefaultSSHPort = 2222

	// DefaultSSHUser is the login user used when a descriptor does not
	// declare one.
	DefaultSSHUser = "outpost"
)

// environmentNameRegex validates environment names.
// Names must start with a lowercase letter or digit, followed by lowercase
// letters, digits, underscores, or hyphens. Maximum length is 63 characters.
var environmentNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateEnvironmentName checks if an environment name is valid.
// Valid names:
//   - Start with a lowercase letter or digit
//   - Contain only lowercase letters, digits, underscores, or hyphens
//   - Are between 1 and 63 characters long
//   - Do not contain path separators or special characters
func ValidateEnvironmentName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name cannot be empty")
	}

	if !environmentNameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// safePath resolves baseDir/name+suffix while guaranteeing the result stays
// inside baseDir. Names like "../../../etc/passwd" cannot escape.
func safePath(baseDir, name, suffix string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("name cannot be an absolute path")
	}

	if filepath.Dir(name) != "." {
		return "", fmt.Errorf("name cannot contain path separators")
	}

	path, err := securejoin.SecureJoin(baseDir, name+suffix)
	if err != nil {
		return "", fmt.Errorf("invalid path for %q: %w", name, err)
	}

	return path, nil
}

// Paths holds the directory layout for outpost-ctl
type Paths struct {
	ConfigDir       string
	StateDir        string
	EnvironmentsDir string // descriptors (operator-authored)
	StatusDir       string // status files (machine-written)
	CacheDir        string // artifact cache
}

// DefaultPaths returns the default path configuration. OUTPOST_CONFIG_DIR
// and OUTPOST_STATE_DIR override the roots.
func DefaultPaths() *Paths {
	configDir := DefaultConfigDir
	if dir := os.Getenv("OUTPOST_CONFIG_DIR"); dir != "" {
		configDir = dir
	}
	stateDir := DefaultStateDir
	if dir := os.Getenv("OUTPOST_STATE_DIR"); dir != "" {
		stateDir = dir
	}
	return NewPaths(configDir, stateDir)
}

// NewPaths builds a Paths rooted at explicit config and state directories.
// Used by tests and by callers that manage their own layout.
func NewPaths(configDir, stateDir string) *Paths {
	return &Paths{
		ConfigDir:       configDir,
		StateDir:        stateDir,
		EnvironmentsDir: filepath.Join(configDir, "environments"),
		StatusDir:       filepath.Join(stateDir, "environments"),
		CacheDir:        filepath.Join(stateDir, "cache"),
	}
}

// ImageIndexPath returns the path to the operator image index.
func (p *Paths) ImageIndexPath() string {
	return filepath.Join(p.ConfigDir, "images.toml")
}
