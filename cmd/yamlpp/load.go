package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openhab/yamlpp/internal/pp"
	"github.com/openhab/yamlpp/internal/tree"
)

func newLoadCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Preprocess a YAML file and print the resolved tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			var observer pp.IncludeObserver
			if verbose {
				observer = func(path string) {
					fmt.Fprintf(os.Stderr, "%s\n", opts.Printer.Detail("including %s", path))
				}
			}

			result, err := pp.LoadWithOptions(args[0], observer, opts)
			if err != nil {
				printErr("%s", formatLoadErr(err, opts))
				os.Exit(exitCodeFor(err))
			}

			out, err := yaml.Marshal(tree.ToGo(result))
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each included file as it is resolved")
	return cmd
}

func formatLoadErr(err error, opts pp.Options) string {
	switch classifyErr(err) {
	case errClassParse:
		return opts.Printer.Errf("parse", "%s", err.Error())
	case errClassSkip:
		return opts.Printer.Errf("skip", "%s", err.Error())
	default:
		return opts.Printer.Errf("load", "%s", err.Error())
	}
}
