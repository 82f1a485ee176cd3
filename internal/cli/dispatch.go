package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/transport"
)

// DispatchResult is the JSON payload of the dispatch command.
type DispatchResult struct {
	Action   string   `json:"action"`
	Callback string   `json:"callback,omitempty"`
	Console  []string `json:"console,omitempty"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <action> [payload]",
		Short: "Send a raw control request",
		Long: `Send a control request as the page would and show what the page saw.

Actions: installScript, getIds, deleteScriptById.
Output produced for the page (console lines, the invalid script alert) is
captured from an in-process JavaScript VM.

Exit codes:
  0 - Request handled
  1 - Request rejected (invalid script or payload, unknown action)
  2 - Command error

Example:
  userscript dispatch getIds
  userscript dispatch deleteScriptById '["example:hello"]'`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			payload := ""
			if len(args) == 2 {
				payload = args[1]
			}
			return runDispatch(rootOpts, args[0], payload, cmd)
		},
	}
	return cmd
}

func runDispatch(opts *RootOptions, action, payload string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := commandContext(cmd)

	vm := transport.NewVM()
	sess, err := opts.openSession(vm, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	callback, dispatchErr := sess.engine.Dispatch(ctx, action, payload)
	if callback != "" {
		if err := vm.Run(ctx, callback); err != nil {
			return WrapExitError(ExitCommandError, "callback failed", err)
		}
	}

	result := DispatchResult{Action: action, Callback: callback}
	for _, entry := range vm.Console() {
		result.Console = append(result.Console, entry.String())
		out.Text("%s", entry.String())
	}

	var ce *engine.ControlError
	switch {
	case errors.As(dispatchErr, &ce):
		failed := &CLIError{Code: "E_" + string(ce.Code), Message: ce.Error()}
		out.Status(false, "%s", ce.Error())
		if err := out.Result(result, failed); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "request rejected", dispatchErr)
	case dispatchErr != nil:
		return WrapExitError(ExitCommandError, "dispatch failed", dispatchErr)
	}

	out.Status(true, "%s handled", action)
	return out.Result(result, nil)
}
