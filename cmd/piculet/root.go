package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/piculet/internal/config"
	pilog "github.com/nao1215/piculet/internal/log"
)

// NewRootCmd creates the root command for piculet.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "piculet",
		Short: "Extract structured data from documents with declarative specs",
		Long: `piculet extracts structured data from HTML, XML and JSON documents.

What to extract is described by a spec: a JSON, YAML or TOML file of rules
pairing output keys with XPath or JSONPath queries and named transforms.
Specs are looked up by name in ./specs and the piculet config directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stderr")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .piculet in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewDumpCmd())
	cmd.AddCommand(NewSpecsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag from the command or the root
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// getStringFlag retrieves a string flag from the command or the root
// persistent flags.
func getStringFlag(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return value
}

// baseConfig creates a Config from the defaults, the environment and the
// global flags, and loads the configuration file.
//
// If the user explicitly specified a config file path, a missing file is
// an error. Otherwise running without a configuration file is fine.
func baseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	if logFile := getStringFlag(cmd, "log-file"); logFile != "" {
		cfg.LogFile = logFile
	}
	cfg.ConfigFilePath = getStringFlag(cmd, "config")

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.File = file
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// setupLogger creates the logger for a run. The returned function closes
// the log file, if any.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, func()) {
	var w io.Writer = cmd.ErrOrStderr()
	closeFn := func() {}

	if cfg.LogFile != "" {
		fw := pilog.NewFileWriter(cfg.LogFile)
		w = fw
		closeFn = func() { _ = fw.Close() }
	}

	return pilog.NewLogger(w, cfg.Verbose, cfg.LogJSON), closeFn
}
