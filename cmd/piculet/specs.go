package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/piculet/internal/config"
	"github.com/nao1215/piculet/internal/piculet"
	"github.com/nao1215/piculet/internal/specfile"
	"github.com/nao1215/piculet/internal/transform"
)

// NewSpecsCmd creates the specs command.
func NewSpecsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "List available specs, aliases and functions",
		Long: `Specs lists the specs found in the spec directories, the aliases
defined in the configuration file, and optionally the transforms,
preprocessors and postprocessors a spec may refer to.

Examples:
  # List specs and aliases
  piculet specs

  # Also list the registered functions
  piculet specs --functions`,
		Args: cobra.NoArgs,
		RunE: runSpecsCmd,
	}

	cmd.Flags().StringSlice("spec-dir", nil,
		"Additional directory searched for specs (repeatable)")
	cmd.Flags().Bool("functions", false,
		"List the transforms, preprocessors and postprocessors")

	return cmd
}

// runSpecsCmd executes the specs command.
func runSpecsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	specDirs, err := cmd.Flags().GetStringSlice("spec-dir")
	if err != nil {
		return err
	}
	cfg.SpecDirs = append(specDirs, cfg.SpecDirs...)

	showFunctions, err := cmd.Flags().GetBool("functions")
	if err != nil {
		return err
	}

	dirs := cfg.SearchDirs()
	names, err := specfile.List(dirs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No specs found in %s\n", strings.Join(dirs, ", "))
	} else {
		fmt.Fprintf(out, "Specs (%d):\n\n", len(names))
		for _, name := range names {
			fmt.Fprintf(out, "  • %s\n", name)
		}
	}

	writeAliases(out, cfg.File)

	if showFunctions {
		writeFunctions(out, transform.Standard())
	}

	return nil
}

// writeAliases lists the spec aliases of the configuration file.
func writeAliases(out io.Writer, file *config.File) {
	if file == nil || len(file.Specs) == 0 {
		return
	}

	fmt.Fprintf(out, "\nAliases (%d):\n\n", len(file.Specs))
	for _, alias := range slices.Sorted(maps.Keys(file.Specs)) {
		sc := file.GetSpecConfig(alias)
		line := fmt.Sprintf("  • %s -> %s", alias, sc.Spec)
		if len(sc.Patterns) > 0 {
			line += " [" + strings.Join(sc.Patterns, ", ") + "]"
		}
		fmt.Fprintln(out, line)
	}
}

// writeFunctions lists the functions of a registry grouped by stage.
func writeFunctions(out io.Writer, reg piculet.Registry) {
	names := reg.Names()
	for _, stage := range []piculet.Stage{piculet.StageTransform, piculet.StagePreprocessor, piculet.StagePostprocessor} {
		fmt.Fprintf(out, "\n%s functions (%d):\n\n", stage, len(names[stage]))
		for _, name := range names[stage] {
			fmt.Fprintf(out, "  • %s\n", name)
		}
	}
}
