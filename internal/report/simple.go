package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/piculet/internal/model"
)

// ruleWidth is the width of the section rules.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and is easier to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether results with no data are listed in
	// batch reports.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty results.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single result in human-readable format.
func (w *SimpleWriter) Write(result *model.Result) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "PICULET RESULT")
	w.writeResult(&sb, result)
	writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs a batch report in human-readable format.
func (w *SimpleWriter) WriteBatch(results []*model.Result) (int, error) {
	var sb strings.Builder
	s := model.Summarize(results)

	writeBanner(&sb, "PICULET REPORT")

	writeSection(&sb, "SUMMARY")
	fmt.Fprintf(&sb, "  SUCCEEDED: %d\n", s.Succeeded-s.Empty)
	fmt.Fprintf(&sb, "  EMPTY:     %d\n", s.Empty)
	fmt.Fprintf(&sb, "  FAILED:    %d\n", s.Failed)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  TOTAL:     %d documents, %d bytes\n", s.Total, s.Bytes)
	if w.verbose {
		fmt.Fprintf(&sb, "  TIME:      %s\n", s.Duration)
	}
	sb.WriteString("\n")

	for _, r := range sortedResults(results) {
		if !r.Failed() && len(r.Data) == 0 && !w.showEmpty {
			continue
		}
		writeSection(&sb, r.Source)
		w.writeResult(&sb, r)
	}

	writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeResult writes the properties and data of one result.
func (w *SimpleWriter) writeResult(sb *strings.Builder, r *model.Result) {
	fmt.Fprintf(sb, "Source:      %s\n", r.Source)
	fmt.Fprintf(sb, "Spec:        %s\n", r.Spec)
	fmt.Fprintf(sb, "Scrape Date: %s\n", r.ScrapedAt.Format("2006-01-02 15:04:05 MST"))
	if w.verbose {
		fmt.Fprintf(sb, "Type:        %s\n", r.DocType)
		if r.Charset != "" {
			fmt.Fprintf(sb, "Charset:     %s\n", r.Charset)
		}
		fmt.Fprintf(sb, "Size:        %d bytes\n", r.Size)
		fmt.Fprintf(sb, "Duration:    %s\n", r.Duration)
	}
	fmt.Fprintf(sb, "Status:      %s\n", statusText(r))
	sb.WriteString("\n")

	for _, key := range r.Keys() {
		fmt.Fprintf(sb, "  [+] %s: %s\n", key, formatValue(r.Data[key]))
	}
	if len(r.Data) > 0 {
		sb.WriteString("\n")
	}
}

// WriteComparison outputs the comparison in human-readable format.
func (w *SimpleWriter) WriteComparison(c *model.Comparison) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "PICULET COMPARISON")

	fmt.Fprintf(&sb, "Source:   %s\n", c.Source)
	fmt.Fprintf(&sb, "Previous: %s\n", c.PreviousAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Current:  %s\n", c.CurrentAt.Format("2006-01-02 15:04:05 MST"))
	if c.ContentChanged {
		sb.WriteString("Document: changed\n")
	} else {
		sb.WriteString("Document: unchanged\n")
	}
	sb.WriteString("\n")

	writeSection(&sb, "CHANGES")
	if !c.HasChanges() {
		fmt.Fprintf(&sb, "  No changes (%d keys unchanged)\n\n", c.UnchangedCount)
	} else {
		for _, key := range c.Added {
			fmt.Fprintf(&sb, "  [+] %s\n", key)
		}
		for _, key := range c.Removed {
			fmt.Fprintf(&sb, "  [-] %s\n", key)
		}
		for _, ch := range c.Changed {
			fmt.Fprintf(&sb, "  [~] %s\n", ch.Key)
			fmt.Fprintf(&sb, "      was: %s\n", formatValue(ch.Previous))
			fmt.Fprintf(&sb, "      now: %s\n", formatValue(ch.Current))
		}
		sb.WriteString("\n")
	}

	writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeBanner writes a title framed by double rules.
func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

// writeSection writes a section heading framed by single rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by piculet\n")
	sb.WriteString("https://github.com/nao1215/piculet\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
