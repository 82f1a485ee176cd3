package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/userscript/internal/engine"
)

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <url>",
		Short: "Show which scripts would run on a URL",
		Long: `Show the stored scripts that would be injected on a navigation to url,
in injection order. Nothing is delivered and the store is not modified.

Example:
  userscript match https://example.com/page`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			return runMatch(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runMatch(opts *RootOptions, url string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	st, err := openStore(opts.Config.DB, opts.Logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	matched := []string{}
	if engine.SupportedScheme(url) {
		scripts, err := st.GetAll(commandContext(cmd))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read store", err)
		}
		for _, s := range scripts {
			if engine.ShouldRun(s, url) {
				matched = append(matched, s.ID)
				out.Text("%s", s.ID)
			}
		}
	} else {
		out.VerboseLog("unsupported scheme, nothing runs on %s", url)
	}

	return out.Result(map[string]any{"url": url, "scripts": matched}, nil)
}
