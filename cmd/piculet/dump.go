package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/piculet/internal/piculet"
	"github.com/nao1215/piculet/internal/specfile"
	"github.com/nao1215/piculet/internal/transform"
)

// NewDumpCmd creates the dump command.
func NewDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <spec>",
		Short: "Load a spec and print its normalized form",
		Long: `Dump loads a spec, checking every query and function name, and prints
it back in the requested format.

The output lists only the fields that are set, so dumping is also a way
to convert a spec between JSON, YAML and TOML.

Examples:
  # Check a spec and print it as JSON
  piculet dump movie

  # Convert a spec to YAML
  piculet dump -f yaml specs/movie.json -o specs/movie.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDumpCmd,
	}

	cmd.Flags().StringP("spec", "s", "",
		"Spec file, spec name or alias (alternative to the argument)")
	cmd.Flags().StringP("format", "f", string(specfile.JSON),
		"Output format: json, yaml or toml")
	cmd.Flags().StringSlice("spec-dir", nil,
		"Additional directory searched for specs (repeatable)")
	cmd.Flags().StringP("output", "o", "",
		"Write the spec to this file instead of stdout")

	return cmd
}

// runDumpCmd executes the dump command.
func runDumpCmd(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("spec")
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if name != "" && name != args[0] {
			return errors.New("give the spec either as an argument or with --spec")
		}
		name = args[0]
	}
	if name == "" {
		return errors.New("spec is required (use 'piculet specs' to see available specs)")
	}

	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := specfile.ParseFormat(formatName)
	if err != nil {
		return err
	}

	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	specDirs, err := cmd.Flags().GetStringSlice("spec-dir")
	if err != nil {
		return err
	}
	cfg.SpecDirs = append(specDirs, cfg.SpecDirs...)

	if cfg.File != nil {
		name = cfg.File.GetSpecConfig(name).Spec
	}

	spec, err := specfile.Open(name, cfg.SearchDirs(), transform.Standard())
	if err != nil {
		return err
	}

	data, err := specfile.Encode(piculet.Dump(spec), format)
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	f, err := createReportFile(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}
	return nil
}
