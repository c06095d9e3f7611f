// Package main is the yamlpp CLI: a thin cobra front-end over internal/pp's
// Load pipeline, following the teacher's flat main.go style (build a root
// command, register subcommands, let each Run func own its own exit code)
// restructured onto cobra.Command instead of the teacher's stdlib flag.*
// calls.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes, mirroring the teacher's CI-friendly convention
// (ExitOK..ExitGuardSkipped in main.go) adapted to the preprocessor's own
// error taxonomy (spec.md §7).
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitParseError = 2
	ExitLoadError  = 3
	ExitSkip       = 4
)

var noColor bool

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(ExitGeneral)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "yamlpp",
		Short: "Preprocess openHAB-style YAML configuration files",
		Long: "yamlpp loads a YAML document, resolves !sub/!if/!include/!insert/!remove/!replace\n" +
			"directives, merge keys, and package composition, and reports the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored diagnostic output")
	root.PersistentFlags().String("config", "", "explicit config file path (overrides .yamlpp.yaml / user config)")
	root.PersistentFlags().Int("max-include-depth", 0, "override the configured maximum !include/!insert depth (0 = use config)")

	root.AddCommand(newLoadCmd(), newCheckCmd(), newWatchCmd())
	return root
}

func exitCodeFor(err error) int {
	switch classifyErr(err) {
	case errClassParse:
		return ExitParseError
	case errClassSkip:
		return ExitSkip
	case errClassLoad:
		return ExitLoadError
	default:
		return ExitGeneral
	}
}

func printErr(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
}
