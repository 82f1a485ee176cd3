package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/transport"
)

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"not_found"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete stored scripts by id",
		Long: `Delete stored scripts through the deleteScriptById control action.

Ids are "namespace:name", as printed by list.

Exit codes:
  0 - Every id was deleted
  1 - One or more ids were not in the store
  2 - Command error

Example:
  userscript delete "example:hello"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			return runDelete(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, ids []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	// The dispatcher confirms each deletion with a console.log in the page;
	// the VM collects them.
	vm := transport.NewVM()
	sess, err := opts.openSession(vm, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	payload, err := json.Marshal(ids)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode ids", err)
	}
	if _, err := sess.engine.Dispatch(commandContext(cmd), engine.ActionDeleteScriptByID, string(payload)); err != nil {
		return WrapExitError(ExitCommandError, "delete failed", err)
	}

	deleted := make(map[string]bool)
	for _, entry := range vm.Console() {
		if id, ok := strings.CutSuffix(entry.Message, " deleted!"); ok && entry.Level == "log" {
			deleted[id] = true
		}
	}

	result := DeleteResult{Deleted: []string{}, NotFound: []string{}}
	for _, id := range ids {
		if deleted[id] {
			result.Deleted = append(result.Deleted, id)
			out.Status(true, "deleted %s", id)
		} else {
			result.NotFound = append(result.NotFound, id)
			out.Status(false, "%s: not found", id)
		}
	}

	var failed *CLIError
	if len(result.NotFound) > 0 {
		failed = &CLIError{
			Code:    "E_NOT_FOUND",
			Message: fmt.Sprintf("%d script(s) not found", len(result.NotFound)),
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
