package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/userscript/internal/delivery"
	"github.com/roach88/userscript/internal/transport"
)

// InjectOptions holds flags for the inject command.
type InjectOptions struct {
	*RootOptions
	Print bool // print commands instead of running them
}

// InjectResult is the JSON payload of the inject command.
type InjectResult struct {
	URL      string   `json:"url"`
	Injected []string `json:"injected"`
	Console  []string `json:"console,omitempty"`
}

// NewInjectCommand creates the inject command.
func NewInjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inject <url>",
		Short: "Run a navigation against an in-process page",
		Long: `Handle a navigation to url exactly as serve would, but deliver into an
in-process JavaScript VM and show what the scripts logged.

Scripts are encoded on first use and the encoded form is saved, as in a
real session. With --print the transport commands are written to stdout,
one per line, instead of being run.

Example:
  userscript inject https://example.com/
  userscript inject https://example.com/ --print > commands.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			return runInject(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Print, "print", false, "print transport commands instead of running them")

	return cmd
}

func runInject(opts *InjectOptions, url string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	var (
		t  delivery.Transport
		vm *transport.VM
	)
	if opts.Print {
		t = transport.NewWriter(cmd.OutOrStdout())
	} else {
		vm = transport.NewVM()
		t = vm
	}

	sess, err := opts.openSession(t, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	injected, err := sess.engine.HandleNavigation(commandContext(cmd), url)
	if err != nil {
		return WrapExitError(ExitCommandError, "navigation failed", err)
	}
	if injected == nil {
		injected = []string{}
	}

	result := InjectResult{URL: url, Injected: injected}
	if vm != nil {
		for _, entry := range vm.Console() {
			result.Console = append(result.Console, entry.String())
		}
	}

	if opts.Print {
		// stdout carries the commands; keep the summary off it.
		out.VerboseLog("injected %d script(s)", len(injected))
		return nil
	}

	for _, id := range injected {
		out.Status(true, "injected %s", id)
	}
	for _, line := range result.Console {
		out.Text("  %s", line)
	}
	if len(injected) == 0 {
		out.Text("No scripts matched %s.", url)
	}
	return out.Result(result, nil)
}
