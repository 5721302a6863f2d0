package target

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockTarget is a mock implementation of Target for testing
type MockTarget struct {
	mu sync.Mutex

	// NameValue is returned by Name()
	NameValue string

	// Files tracks files written to the mock environment
	Files map[string]string

	// Modes tracks the mode each file was written with
	Modes map[string]string

	// ExecResults maps the first command word to a predefined result.
	// Commands without an entry succeed with exit code 0.
	ExecResults map[string]*ExecResult

	// Errors injects errors for specific operations ("exec", "writefile")
	Errors map[string]error

	// ReadyAfter is the number of Ready calls that return false before
	// the mock reports ready. Negative means never ready.
	ReadyAfter int

	// CallLog records all method calls for verification
	CallLog []MockCall

	readyCalls int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockTarget creates a new mock target
func NewMockTarget(name string) *MockTarget {
	return &MockTarget{
		NameValue:   name,
		Files:       make(map[string]string),
		Modes:       make(map[string]string),
		ExecResults: make(map[string]*ExecResult),
		Errors:      make(map[string]error),
		CallLog:     make([]MockCall, 0),
	}
}

func (m *MockTarget) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockTarget) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetExecResult sets the result for commands whose first word matches
func (m *MockTarget) SetExecResult(command string, result *ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecResults[command] = result
}

// GetCallsFor returns all calls for a specific method
func (m *MockTarget) GetCallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Commands returns every Exec invocation as a joined string, in order.
func (m *MockTarget) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var commands []string
	for _, call := range m.CallLog {
		if call.Method != "Exec" {
			continue
		}
		if parts, ok := call.Args[0].([]string); ok {
			commands = append(commands, strings.Join(parts, " "))
		}
	}
	return commands
}

// Name returns the environment name
func (m *MockTarget) Name() string {
	return m.NameValue
}

// Exec records the command and returns the configured result
func (m *MockTarget) Exec(ctx context.Context, command []string) (*ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exec", command)

	if err := m.Errors["exec"]; err != nil {
		return nil, err
	}

	if len(command) > 0 {
		if result, ok := m.ExecResults[command[0]]; ok {
			return result, nil
		}
	}

	return &ExecResult{ExitCode: 0}, nil
}

// WriteFile records the file contents in memory
func (m *MockTarget) WriteFile(ctx context.Context, path string, content io.Reader, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("WriteFile", path, mode)

	if err := m.Errors["writefile"]; err != nil {
		return err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}

	m.Files[path] = string(data)
	m.Modes[path] = mode
	return nil
}

// Ready returns false until ReadyAfter calls have been made
func (m *MockTarget) Ready(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Ready")

	if m.ReadyAfter < 0 {
		return false
	}

	m.readyCalls++
	return m.readyCalls > m.ReadyAfter
}
