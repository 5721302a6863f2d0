package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-tools/outpost-ctl/internal/audit"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/session"
	"github.com/outpost-tools/outpost-ctl/internal/tui"
)

var sshCmd = &cobra.Command{
	Use:   "ssh [name]",
	Short: "Open an interactive session on an environment",
	Long: `Opens an interactive SSH session on a ready environment.

Without a name, shows an interactive picker of known environments.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSSH,
}

func init() {
	rootCmd.AddCommand(sshCmd)
}

func runSSH(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return connectTo(cmd.Context(), args[0])
	}
	return runSSHPicker(cmd.Context())
}

func connectTo(ctx context.Context, name string) error {
	status, err := loadEnvironment(name)
	if err != nil {
		return err
	}

	if status.State != "ready" {
		return errors.New(errors.ExitGeneralError,
			fmt.Sprintf("environment %s is not ready (state: %s); run: outpost-ctl up %s",
				name, status.State, name))
	}

	gw := gatewayFor(status)
	sess, err := gw.Open(ctx)
	if err != nil {
		return err
	}
	recordSession(sess)

	// Replaces the current process on success
	return gw.Connect()
}

// recordSession writes an opened session handle to the audit log.
func recordSession(sess *session.Session) {
	log := audit.NewLogger(paths().StateDir)
	details := fmt.Sprintf("id=%s endpoint=%s@%s:%d", sess.ID, sess.User, sess.Host, sess.Port)
	if err := log.LogEvent(audit.EventSession, sess.Environment, details); err != nil {
		logging.Debug("audit write failed", "name", sess.Environment, "error", err)
	}
}

func runSSHPicker(ctx context.Context) error {
	environments, err := loadEnvironments()
	if err != nil {
		return err
	}

	result, err := tui.RunPicker(environments)
	if err != nil {
		return err
	}

	switch result.Action {
	case tui.ActionConnect:
		return connectTo(ctx, result.Environment.Name)

	case tui.ActionUp:
		if err := upEnvironment(ctx, result.Environment.Name); err != nil {
			return err
		}
		return connectTo(ctx, result.Environment.Name)

	case tui.ActionDestroy:
		return destroyEnvironment(result.Environment.Name)

	case tui.ActionQuit, tui.ActionNone:
		if len(environments) == 0 {
			fmt.Print(tui.SimplePicker(environments))
		}
		return nil
	}

	return nil
}
