package provision

import (
	"context"
	"strings"
	"testing"

	"github.com/outpost-tools/outpost-ctl/internal/config"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/target"
)

func TestCompile(t *testing.T) {
	specs := []config.StepSpec{
		{Type: config.StepPackage, Packages: []string{"curl"}},
		{Type: config.StepFile, Path: "/etc/motd", Content: "hi\n"},
		{Type: config.StepCommand, Command: "true"},
	}

	steps, err := Compile(specs)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("len(steps) = %d, want 3", len(steps))
	}

	if _, ok := steps[0].(*PackageStep); !ok {
		t.Errorf("steps[0] = %T, want *PackageStep", steps[0])
	}
	if _, ok := steps[1].(*FileStep); !ok {
		t.Errorf("steps[1] = %T, want *FileStep", steps[1])
	}
	if _, ok := steps[2].(*CommandStep); !ok {
		t.Errorf("steps[2] = %T, want *CommandStep", steps[2])
	}
}

func TestCompile_UnknownType(t *testing.T) {
	_, err := Compile([]config.StepSpec{{Type: "reboot"}})
	if err == nil {
		t.Error("Expected error for unknown step type")
	}
}

func TestRun_AppliesStepsInOrder(t *testing.T) {
	mock := target.NewMockTarget("dev")
	// Packages not yet installed, so the package step applies.
	mock.SetExecResult("dpkg", &target.ExecResult{ExitCode: 1})

	steps, err := Compile([]config.StepSpec{
		{Type: config.StepPackage, Packages: []string{"curl"}},
		{Type: config.StepCommand, Command: "echo done"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if err := NewRunner(mock).Run(context.Background(), steps); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	commands := mock.Commands()
	var order []string
	for _, cmd := range commands {
		switch {
		case strings.HasPrefix(cmd, "sudo apt-get install"):
			order = append(order, "install")
		case strings.HasPrefix(cmd, "sh -c echo done"):
			order = append(order, "command")
		}
	}

	if len(order) != 2 || order[0] != "install" || order[1] != "command" {
		t.Errorf("unexpected execution order: %v (commands: %v)", order, commands)
	}
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	mock := target.NewMockTarget("dev")
	mock.SetExecResult("dpkg", &target.ExecResult{ExitCode: 1})
	// The command step fails.
	mock.SetExecResult("sh", &target.ExecResult{ExitCode: 1, Stderr: "boom"})

	steps, err := Compile([]config.StepSpec{
		{Type: config.StepPackage, Packages: []string{"curl"}},
		{Type: config.StepCommand, Command: "exit 1"},
		{Type: config.StepFile, Path: "/etc/after", Content: "never\n"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	runErr := NewRunner(mock).Run(context.Background(), steps)
	if runErr == nil {
		t.Fatal("Expected ProvisioningFailed")
	}
	if errors.GetExitCode(runErr) != errors.ExitProvisioningFailed {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(runErr), errors.ExitProvisioningFailed)
	}
	if !strings.Contains(runErr.Error(), "step 2") {
		t.Errorf("error should name the failing step, got: %v", runErr)
	}

	// Later steps are never attempted after a failure.
	if calls := mock.GetCallsFor("WriteFile"); len(calls) != 0 {
		t.Errorf("step after failure was attempted: %v", calls)
	}
	if len(mock.Files) != 0 {
		t.Errorf("no files should be written, got: %v", mock.Files)
	}
}

func TestRun_SkipsSatisfiedSteps(t *testing.T) {
	mock := target.NewMockTarget("dev")
	// dpkg reports the package present, so install is skipped.

	steps, err := Compile([]config.StepSpec{
		{Type: config.StepPackage, Packages: []string{"curl"}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if err := NewRunner(mock).Run(context.Background(), steps); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, cmd := range mock.Commands() {
		if strings.HasPrefix(cmd, "sudo apt-get install") {
			t.Errorf("satisfied step should not re-apply, ran: %v", cmd)
		}
	}
}

func TestRun_CommandStepCreatesGuard(t *testing.T) {
	mock := target.NewMockTarget("dev")
	// Guard path absent on the first pass.
	mock.SetExecResult("test", &target.ExecResult{ExitCode: 1})

	steps, err := Compile([]config.StepSpec{
		{Type: config.StepCommand, Command: "make-marker", Creates: "/var/lib/marker"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	runner := NewRunner(mock)
	if err := runner.Run(context.Background(), steps); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	firstRunCommands := len(mock.Commands())

	// The marker now exists; a full re-run must not execute the command
	// again.
	mock.SetExecResult("test", &target.ExecResult{ExitCode: 0})
	if err := runner.Run(context.Background(), steps); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	var shRuns int
	for _, cmd := range mock.Commands() {
		if strings.HasPrefix(cmd, "sh -c make-marker") {
			shRuns++
		}
	}
	if shRuns != 1 {
		t.Errorf("command ran %d times across two passes, want 1", shRuns)
	}
	if len(mock.Commands()) != firstRunCommands+1 {
		t.Errorf("second pass should only probe the guard, commands: %v", mock.Commands())
	}
}

func TestRun_RerunProducesSameState(t *testing.T) {
	mock := target.NewMockTarget("dev")

	steps, err := Compile([]config.StepSpec{
		{Type: config.StepFile, Path: "/etc/motd", Content: "welcome\n", Mode: "0644"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	runner := NewRunner(mock)
	for i := 0; i < 2; i++ {
		if err := runner.Run(context.Background(), steps); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}

	// Running the sequence twice leaves the same final state as once.
	if mock.Files["/etc/motd"] != "welcome\n" {
		t.Errorf("file content = %q, want %q", mock.Files["/etc/motd"], "welcome\n")
	}
	if len(mock.Files) != 1 {
		t.Errorf("len(Files) = %d, want 1", len(mock.Files))
	}
}

func TestRun_Cancelled(t *testing.T) {
	mock := target.NewMockTarget("dev")

	steps, err := Compile([]config.StepSpec{
		{Type: config.StepCommand, Command: "true"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runErr := NewRunner(mock).Run(ctx, steps)
	if runErr == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if len(mock.Commands()) != 0 {
		t.Error("no steps should run after cancellation")
	}
}

func TestFileStep_CheckMatchesContent(t *testing.T) {
	mock := target.NewMockTarget("dev")
	// sha256sum of "welcome\n"
	mock.SetExecResult("sha256sum", &target.ExecResult{
		ExitCode: 0,
		Stdout:   "77f44b9024fd19a6674a62d98939f4e7f1b77f64eac4c7559414c46bdaec494c  /etc/motd\n",
	})

	step := &FileStep{Path: "/etc/motd", Content: "welcome\n"}
	satisfied, err := step.Check(context.Background(), mock)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !satisfied {
		t.Error("Check should report satisfied when content matches")
	}
}

func TestPackageStep_Describe(t *testing.T) {
	step := &PackageStep{Packages: []string{"curl", "git"}}
	if got := step.Describe(); got != "install curl git" {
		t.Errorf("Describe() = %q", got)
	}
}
