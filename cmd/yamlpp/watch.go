package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openhab/yamlpp/internal/pp"
)

// newWatchCmd demonstrates the include-observer hook (spec.md §5, §6). It
// does not implement file-watching: hot-reload orchestration is an explicit
// non-goal (spec.md §1) beyond this single observation hook, so the command
// loads once and prints every file it touched.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Load once, printing every file reached via !include (no file watching)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			observer := func(path string) {
				fmt.Fprintln(os.Stdout, opts.Printer.Detail("watching %s", path))
			}

			if _, err := pp.LoadWithOptions(args[0], observer, opts); err != nil {
				printErr("%s", formatLoadErr(err, opts))
				os.Exit(exitCodeFor(err))
			}
			return nil
		},
	}
	return cmd
}
