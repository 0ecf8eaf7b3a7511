package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/piculet/internal/database"
	"github.com/nao1215/piculet/internal/model"
	"github.com/nao1215/piculet/internal/report"
)

// dateLayout is the format of the --since and --prune-before flags.
const dateLayout = "2006-01-02"

// NewHistoryCmd creates the history command.
// This command compares results with historical data stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [document]",
		Short: "Compare scrape results with historical data",
		Long: `History displays differences between the latest and a previous scrape
of the same document.

This command retrieves the results saved by 'piculet scrape --save' and shows:
- Keys that appeared since the previous scrape
- Keys that are no longer extracted
- Values that changed

Documents are identified by the path they were scraped from.

Examples:
  # Compare the latest two results for a document
  piculet history pages/shining.html

  # List all saved results for a document
  piculet history --list pages/shining.html

  # Compare with a specific result by ID (a unique prefix is enough)
  piculet history --with-id 3f2a pages/shining.html

  # Compare with the first result after a date
  piculet history --since 2026-01-01 pages/shining.html

  # List every document in the database
  piculet history --list-sources

  # Remove results older than a date
  piculet history --prune-before 2025-01-01`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List saved results for the specified document")
	cmd.Flags().BoolP("list-sources", "L", false,
		"List all documents in the database")
	cmd.Flags().String("prune-before", "",
		"Delete results scraped before this date (format: YYYY-MM-DD)")

	// Comparison target flags
	cmd.Flags().StringP("with-id", "i", "",
		"Compare with a specific result by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first result after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", "",
		"Database directory (default: piculet data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSources, err := cmd.Flags().GetBool("list-sources")
	if err != nil {
		return err
	}
	pruneBefore, err := cmd.Flags().GetString("prune-before")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var pruneTime time.Time
	if pruneBefore != "" {
		if pruneTime, err = time.Parse(dateLayout, pruneBefore); err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}
	var source string
	if !listSources && pruneBefore == "" {
		if len(args) == 0 {
			return errors.New("document is required (use --list-sources to see available documents)")
		}
		source = args[0]
	}

	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	if dbDir, _ := cmd.Flags().GetString("db-dir"); dbDir != "" {
		cfg.DBDir = dbDir
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if pruneBefore != "" {
		n, err := db.DeleteBefore(ctx, pruneTime)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d results scraped before %s\n", n, pruneBefore)
		return nil
	}

	if listSources {
		return listStoredSources(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listResultHistory(ctx, out, db, source)
	}

	withID, err := cmd.Flags().GetString("with-id")
	if err != nil {
		return err
	}
	since, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	comparison, err := buildComparison(ctx, db, source, withID, since)
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case jsonOutput:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out)
	}
	_, err = writer.WriteComparison(comparison)
	return err
}

// listStoredSources lists all documents that have results in the database.
func listStoredSources(ctx context.Context, out io.Writer, db *database.ResultDB) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Fprintln(out, "No saved results found in the database.")
		fmt.Fprintln(out, "\nUse 'piculet scrape --save' to save scrape results.")
		return nil
	}

	fmt.Fprintf(out, "Saved documents (%d):\n\n", len(sources))
	for _, source := range sources {
		fmt.Fprintf(out, "  • %s\n", source)
	}
	fmt.Fprintln(out, "\nUse 'piculet history --list <document>' to see the results for a document.")

	return nil
}

// listResultHistory lists all saved results for a document.
func listResultHistory(ctx context.Context, out io.Writer, db *database.ResultDB, source string) error {
	metas, err := db.GetHistoryWithMetadata(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(metas) == 0 {
		fmt.Fprintf(out, "No saved results found for %s\n", source)
		fmt.Fprintln(out, "\nUse 'piculet scrape --save' to save scrape results.")
		return nil
	}

	fmt.Fprintf(out, "History for %s (%d results):\n\n", source, len(metas))
	fmt.Fprintf(out, "  %-8s  %-20s  %-16s  %s\n", "ID", "Date", "Spec", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 64))

	for _, meta := range metas {
		fmt.Fprintf(out, "  %-8s  %-20s  %-16s  %s\n",
			shortID(meta.ID),
			meta.ScrapedAt.Local().Format("2006-01-02 15:04:05"),
			meta.Spec,
			formatMetaStatus(meta),
		)
	}

	fmt.Fprintln(out, "\nUse 'piculet history <document>' to compare the latest two results.")
	fmt.Fprintln(out, "Use 'piculet history --with-id <id> <document>' to compare with a specific result.")

	return nil
}

// shortID returns the first eight characters of a result ID.
// The prefix is accepted by --with-id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatMetaStatus formats the outcome of a stored result.
func formatMetaStatus(meta database.ResultMetadata) string {
	switch {
	case meta.Failed:
		return "failed"
	case meta.KeyCount == 0:
		return "empty"
	default:
		return fmt.Sprintf("%d keys", meta.KeyCount)
	}
}

// buildComparison picks the two results to compare. The latest result is
// always the current one; the previous one is chosen by ID, by date or,
// by default, is the one before the latest.
func buildComparison(ctx context.Context, db *database.ResultDB, source, withID, since string) (*model.Comparison, error) {
	results, err := db.GetHistory(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no saved results found for %s", source)
	}

	if len(results) < 2 && withID == "" && since == "" {
		return nil, fmt.Errorf("at least 2 results are required for comparison (found %d)", len(results))
	}

	current := results[0]
	var previous *model.Result

	switch {
	case withID != "":
		previous, err = db.GetResultByID(ctx, withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get result with ID %s: %w", withID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("result with ID %s not found", withID)
		}
		// The result must belong to the same document
		if previous.Source != source {
			return nil, fmt.Errorf("result %s belongs to %s, not %s", withID, previous.Source, source)
		}
	case since != "":
		sinceTime, err := time.Parse(dateLayout, since)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Results are sorted newest first, so iterate in reverse to find
		// the oldest result at or after the date
		for i := len(results) - 1; i >= 0; i-- {
			if !results[i].ScrapedAt.Before(sinceTime) {
				previous = results[i]
				break
			}
		}
		if previous == nil {
			return nil, fmt.Errorf("no results found since %s", since)
		}
		if previous == current {
			return nil, fmt.Errorf("only one result found since %s; at least 2 results are required for comparison", since)
		}
	default:
		previous = results[1]
	}

	return model.Compare(previous, current), nil
}
