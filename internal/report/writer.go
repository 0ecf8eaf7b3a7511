package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/nao1215/piculet/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scrape results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same
// API.
type Writer interface {
	// Write outputs a single result.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.Result) (int, error)

	// WriteBatch outputs the results of a batch run with a summary.
	WriteBatch(results []*model.Result) (int, error)

	// WriteComparison outputs the differences between two results.
	WriteComparison(c *model.Comparison) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.Result) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(result) })
}

// WriteBatch outputs the batch to all configured Writers.
func (m *MultiWriter) WriteBatch(results []*model.Result) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteBatch(results) })
}

// WriteComparison outputs the comparison to all configured Writers.
func (m *MultiWriter) WriteComparison(c *model.Comparison) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteComparison(c) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes the outcome of a result.
func statusText(r *model.Result) string {
	switch {
	case r.Failed():
		return "Error - " + r.Error
	case len(r.Data) == 0:
		return "Empty (no rule matched)"
	default:
		return fmt.Sprintf("Complete (%d keys)", len(r.Data))
	}
}

// formatValue renders an extracted value on one line. Strings are shown
// as they are, everything else as compact JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// sortedResults returns the non-nil results ordered by source, so that
// the output of a concurrent batch is stable.
func sortedResults(results []*model.Result) []*model.Result {
	out := make([]*model.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Result) int {
		switch {
		case a.Source < b.Source:
			return -1
		case a.Source > b.Source:
			return 1
		default:
			return 0
		}
	})
	return out
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
