package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run the preprocessor for its side effects only (CI-friendly)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			if _, err := loadQuiet(args[0], opts); err != nil {
				printErr("%s", formatLoadErr(err, opts))
				os.Exit(exitCodeFor(err))
			}
			fmt.Println(opts.Printer.Detail("%s: OK", args[0]))
			return nil
		},
	}
	return cmd
}
