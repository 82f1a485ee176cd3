package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// ScriptInfo describes a stored script.
type ScriptInfo struct {
	ID      string   `json:"id"`
	Match   []string `json:"match"`
	Exclude []string `json:"exclude"`
	Encoded bool     `json:"encoded"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scripts in injection order",
		Long: `List stored scripts in the order they are injected.

With --verbose the match and exclude patterns are shown as well.

Example:
  userscript list
  userscript list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			return runList(rootOpts, cmd)
		},
	}
	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	st, err := openStore(opts.Config.DB, opts.Logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	scripts, err := st.GetAll(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read store", err)
	}

	infos := make([]ScriptInfo, 0, len(scripts))
	for _, s := range scripts {
		infos = append(infos, ScriptInfo{ID: s.ID, Match: s.Match, Exclude: s.Exclude, Encoded: s.Encoded})
		out.Text("%s", s.ID)
		if opts.Verbose {
			out.Text("  match:   %s", strings.Join(s.Match, " "))
			if len(s.Exclude) > 0 {
				out.Text("  exclude: %s", strings.Join(s.Exclude, " "))
			}
		}
	}
	if len(infos) == 0 {
		out.Text("No scripts installed.")
	}

	return out.Result(map[string]any{"scripts": infos}, nil)
}
