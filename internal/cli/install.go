package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/script"
	"github.com/roach88/userscript/internal/transport"
)

// InstallResult is the JSON payload of the install command.
type InstallResult struct {
	Installed []InstalledScript `json:"installed"`
	Failed    []FailedInstall   `json:"failed"`
}

// InstalledScript is one successfully installed file.
type InstalledScript struct {
	File string `json:"file"`
	ID   string `json:"id"`
}

// FailedInstall is one file that could not be installed.
type FailedInstall struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <file>...",
		Short: "Install userscripts into the store",
		Long: `Install userscript files into the store.

Each file goes through the installScript control action, exactly as if the
page had requested it. A script with the same namespace and name replaces
the stored one and keeps its position.

Exit codes:
  0 - All files installed
  1 - One or more files are not valid userscripts
  2 - Command error (unreadable config, store not openable)

Example:
  userscript install ./hello.user.js ./dark-mode.user.js`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			return runInstall(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runInstall(opts *RootOptions, files []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	// Install never delivers anything except the invalid-script alert, which
	// is reported here instead.
	sess, err := opts.openSession(&transport.Recorder{}, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	result := InstallResult{
		Installed: []InstalledScript{},
		Failed:    []FailedInstall{},
	}
	for _, file := range files {
		id, err := installFile(cmd, sess.engine, file)
		if err != nil {
			result.Failed = append(result.Failed, FailedInstall{File: file, Error: err.Error()})
			out.Status(false, "%s: %v", file, err)
			continue
		}
		result.Installed = append(result.Installed, InstalledScript{File: file, ID: id})
		out.Status(true, "installed %s", id)
	}

	var failed *CLIError
	if len(result.Failed) > 0 {
		failed = &CLIError{
			Code:    "E_INSTALL_FAILED",
			Message: fmt.Sprintf("%d file(s) not installed", len(result.Failed)),
		}
	}
	if err := out.Result(result, failed); err != nil {
		return err
	}
	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}

// installFile installs one file and returns the stored id.
func installFile(cmd *cobra.Command, eng *engine.Engine, file string) (string, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	_, err = eng.Dispatch(commandContext(cmd), engine.ActionInstallScript, string(src))
	var ce *engine.ControlError
	if errors.As(err, &ce) && ce.Code == engine.ErrCodeInvalidScript {
		return "", fmt.Errorf("%s: %w", engine.InvalidScriptMessage, ce.Err)
	}
	if err != nil {
		return "", err
	}

	// Dispatch accepted it, so it parses.
	s, err := script.Parse(string(src))
	if err != nil {
		return "", err
	}
	return s.ID, nil
}
