package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openhab/yamlpp/internal/config"
	"github.com/openhab/yamlpp/internal/diag"
	"github.com/openhab/yamlpp/internal/pp"
	"github.com/openhab/yamlpp/internal/tree"
)

// optionsFromFlags builds pp.Options from the persistent --config/
// --max-include-depth/--no-color flags layered over internal/config's
// .yamlpp.yaml / user-config / defaults chain, matching the teacher's
// LoadConfig-then-ApplyConfigToSharedOptions precedence.
func optionsFromFlags(cmd *cobra.Command) (pp.Options, error) {
	configPath, _ := cmd.Flags().GetString("config")
	maxDepth, _ := cmd.Flags().GetInt("max-include-depth")

	cfg, err := config.Load(configPath)
	if err != nil {
		return pp.Options{}, err
	}
	if maxDepth > 0 {
		cfg.Include.MaxDepth = maxDepth
	}

	root, _ := os.Getwd()
	return pp.Options{
		ConfigRoot: root,
		MaxDepth:   cfg.Include.MaxDepth,
		Printer:    diag.Printer{Color: cfg.ColorEnabled(noColor)},
	}, nil
}

// loadQuiet runs Load with no include observer, for subcommands that only
// care about the resolved tree or the error, not the include trace.
func loadQuiet(path string, opts pp.Options) (*tree.Value, error) {
	return pp.LoadWithOptions(path, nil, opts)
}
