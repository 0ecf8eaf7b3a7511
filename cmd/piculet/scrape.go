package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/nao1215/piculet/internal/config"
	"github.com/nao1215/piculet/internal/database"
	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/model"
	"github.com/nao1215/piculet/internal/pipeline"
	"github.com/nao1215/piculet/internal/report"
	"github.com/nao1215/piculet/internal/specfile"
	"github.com/nao1215/piculet/internal/transform"
)

// errScrapeFailed is returned when at least one document failed, after
// the report has been written.
var errScrapeFailed = errors.New("some documents could not be scraped")

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [document...]",
		Short: "Extract data from documents with a spec",
		Long: `Scrape parses documents and extracts data from them with a spec.

Documents are file paths, glob patterns ("**" matches across directories)
or "-" for standard input. Gzip compressed documents are decompressed
automatically. The document type is taken from --doctype, the spec, or
detected from the content.

Without --spec, each document is scraped with the spec alias whose
patterns in the configuration file match its path.

Examples:
  # Scrape a page with the spec specs/movie.json
  piculet scrape -s movie shining.html

  # Scrape from standard input and print the data as JSON
  curl -s https://example.com/title/tt0081505/ | piculet scrape -s movie --json -

  # Scrape many pages concurrently and save the results for 'history'
  piculet scrape -s movie -b 16 --save 'pages/**/*.html'

  # Write a Markdown report and a Prometheus textfile
  piculet scrape -s movie -m -o report.md --metrics-file piculet.prom pages/*.html`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Spec flags
	cmd.Flags().StringP("spec", "s", "",
		"Spec file, spec name or alias from the configuration file")
	cmd.Flags().StringSlice("spec-dir", nil,
		"Additional directory searched for specs (repeatable)")
	cmd.Flags().StringP("doctype", "d", "",
		"Document type: html, xml or json (default: from spec or detected)")
	cmd.Flags().String("charset", "",
		"Charset of HTML documents (default: detected)")

	// Run flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of documents scraped concurrently")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Timeout for the whole run (0 means no timeout)")
	cmd.Flags().Int64("max-size", config.DefaultMaxDocumentSize,
		"Maximum document size in bytes")

	// Storage flags
	cmd.Flags().Bool("save", false,
		"Save results to the database for the history command")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: piculet data directory)")
	cmd.Flags().String("metrics-file", "",
		"Write run metrics in the Prometheus text format to this file")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown report (mutually exclusive with --json)")
	cmd.Flags().Bool("full", false,
		"Include result metadata in the JSON output of a single document")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScrapeConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cmd, cfg)
	defer closeLog()

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}
	charset, err := cmd.Flags().GetString("charset")
	if err != nil {
		return err
	}

	results, err := runScrape(ctx, cfg, logger, cmd.InOrStdin(), charset)
	if err != nil {
		return err
	}

	if err := outputResults(cmd.OutOrStdout(), cfg, results, full); err != nil {
		return err
	}

	for _, r := range results {
		if r == nil || r.Failed() {
			return errScrapeFailed
		}
	}
	return nil
}

// buildScrapeConfig creates a Config from cobra command flags.
// Flags only override the environment when they are given explicitly.
func buildScrapeConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if cfg.SpecName, err = flags.GetString("spec"); err != nil {
		return nil, err
	}

	specDirs, err := flags.GetStringSlice("spec-dir")
	if err != nil {
		return nil, err
	}
	cfg.SpecDirs = append(specDirs, cfg.SpecDirs...)

	docType, err := flags.GetString("doctype")
	if err != nil {
		return nil, err
	}
	if docType != "" {
		dt, err := document.ParseDocType(docType)
		if err != nil {
			return nil, fmt.Errorf("configuration error: %w", config.ErrInvalidDocType)
		}
		cfg.DocType = dt
	}

	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxDocumentSize, err = flags.GetInt64("max-size"); err != nil {
		return nil, err
	}

	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if dbDir, _ := flags.GetString("db-dir"); dbDir != "" {
		cfg.DBDir = dbDir
	}
	if metricsFile, _ := flags.GetString("metrics-file"); metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Inputs, err = expandInputs(args)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandInputs expands glob patterns in the arguments. Arguments without
// glob characters, including "-", are kept as they are so that missing
// files are reported by the scrape itself.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if arg == model.StdinSource || !strings.ContainsAny(arg, "*?[{") {
			inputs = append(inputs, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no documents match %q", arg)
		}
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

// scrapeGroup is a set of inputs scraped with the same spec settings.
type scrapeGroup struct {
	settings config.SpecConfig
	indexes  []int
}

// groupInputs assigns a spec to every input. With a spec name all inputs
// share it; otherwise each input is matched against the alias patterns of
// the configuration file. Groups are returned in order of first input.
func groupInputs(cfg *config.Config) ([]*scrapeGroup, error) {
	file := cfg.File
	if file == nil {
		file = &config.File{}
	}

	if cfg.SpecName != "" {
		g := &scrapeGroup{settings: file.GetSpecConfig(cfg.SpecName)}
		for i := range cfg.Inputs {
			g.indexes = append(g.indexes, i)
		}
		return []*scrapeGroup{g}, nil
	}

	byAlias := make(map[string]*scrapeGroup)
	var groups []*scrapeGroup
	for i, input := range cfg.Inputs {
		alias, ok := file.MatchInput(filepath.ToSlash(input))
		if !ok {
			return nil, fmt.Errorf("%w: no spec pattern matches %s", config.ErrNoSpec, input)
		}
		g, ok := byAlias[alias]
		if !ok {
			g = &scrapeGroup{settings: file.GetSpecConfig(alias)}
			byAlias[alias] = g
			groups = append(groups, g)
		}
		g.indexes = append(g.indexes, i)
	}
	return groups, nil
}

// runScrape scrapes every input and returns the results in input order.
// A non-empty charset overrides the charset of every spec alias.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdin io.Reader, charset string) ([]*model.Result, error) {
	groups, err := groupInputs(cfg)
	if err != nil {
		return nil, err
	}

	var db *database.ResultDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	var metrics *pipeline.Metrics
	if cfg.MetricsFile != "" {
		metrics = pipeline.NewMetrics()
	}

	registry := transform.Standard()
	results := make([]*model.Result, len(cfg.Inputs))

	for _, g := range groups {
		spec, err := specfile.Open(g.settings.Spec, cfg.SearchDirs(), registry)
		if err != nil {
			return nil, err
		}

		configOpts := []pipeline.DefaultPipelineOption{
			pipeline.WithPipelineMaxDocumentSize(cfg.MaxDocumentSize),
			pipeline.WithPipelineStdin(stdin),
		}
		docType := cfg.DocType
		if docType == "" && g.settings.DocType != "" {
			if docType, err = document.ParseDocType(g.settings.DocType); err != nil {
				return nil, fmt.Errorf("spec %s: %w", g.settings.Spec, err)
			}
		}
		if docType != "" {
			configOpts = append(configOpts, pipeline.WithPipelineDocType(docType))
		}
		groupCharset := charset
		if groupCharset == "" {
			groupCharset = g.settings.Charset
		}
		if groupCharset != "" {
			configOpts = append(configOpts, pipeline.WithPipelineCharset(groupCharset))
		}
		if db != nil {
			configOpts = append(configOpts, pipeline.WithPipelineDB(db))
		}

		batchOpts := []pipeline.BatchOption{
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
			pipeline.WithSpecName(g.settings.Spec),
		}
		if metrics != nil {
			batchOpts = append(batchOpts, pipeline.WithMetrics(metrics))
		}

		bp := pipeline.NewBatchProcessor(func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(spec, []pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
		}, batchOpts...)

		sources := make([]string, len(g.indexes))
		for i, idx := range g.indexes {
			sources[i] = cfg.Inputs[idx]
		}

		groupResults, err := bp.ProcessBatch(ctx, sources)
		for i, r := range groupResults {
			results[g.indexes[i]] = r
		}
		if err != nil {
			return nil, fmt.Errorf("scrape interrupted: %w", err)
		}
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	return results, nil
}

// outputResults writes the results in the requested format.
// A single input is reported as a single result, several as a batch.
func outputResults(stdout io.Writer, cfg *config.Config, results []*model.Result, full bool) error {
	output := stdout
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		opts := []report.JSONWriterOption{
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		}
		if !full {
			opts = append(opts, report.WithDataOnly())
		}
		writer = report.NewJSONWriter(output, opts...)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	var err error
	if len(results) == 1 && results[0] != nil {
		_, err = writer.Write(results[0])
	} else {
		_, err = writer.WriteBatch(slices.DeleteFunc(slices.Clone(results), func(r *model.Result) bool { return r == nil }))
	}
	return err
}

// createReportFile creates the report file and its parent directories.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may contain scraped personal data, so only the owner can read them
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user supplied output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
