package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/piculet/internal/model"
)

// syntaxJSON highlights the data code blocks.
const syntaxJSON = markdown.SyntaxHighlight("json")

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a result in Markdown format.
func (w *MarkdownWriter) Write(result *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scrape Result")
	md.PlainText("")
	w.writeResult(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a batch report in Markdown format.
func (w *MarkdownWriter) WriteBatch(results []*model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := model.Summarize(results)

	md.H1("Scrape Report")
	md.PlainText("")
	w.writeSummary(md, summary)

	for _, r := range sortedResults(results) {
		md.H2(r.Source)
		md.PlainText("")
		w.writeResult(md, r)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the batch summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"✅ Succeeded", strconv.Itoa(s.Succeeded - s.Empty)},
			{"⚪ Empty", strconv.Itoa(s.Empty)},
			{"❌ Failed", strconv.Itoa(s.Failed)},
			{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
		},
	})
	md.PlainText("")

	if s.Total > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.Failed > 0:
		md.Warningf("%d of %d document(s) could not be scraped.", s.Failed, s.Total)
	case s.Empty > 0:
		md.Importantf("%d document(s) matched no rule.", s.Empty)
	default:
		md.Tip("All documents were scraped.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the batch outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Scrape Outcomes"),
		piechart.WithShowData(true),
	)

	if n := s.Succeeded - s.Empty; n > 0 {
		chart.LabelAndIntValue("Succeeded", uint64(n))
	}
	if s.Empty > 0 {
		chart.LabelAndIntValue("Empty", uint64(s.Empty))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.Failed))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeResult writes the properties and data of one result.
func (w *MarkdownWriter) writeResult(md *markdown.Markdown, r *model.Result) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + r.Source + "`"},
			{"Spec", "`" + r.Spec + "`"},
			{"Document Type", r.DocType},
			{"Size", strconv.FormatInt(r.Size, 10) + " bytes"},
			{"Scrape Date", r.ScrapedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Duration.String()},
			{"Status", statusText(r)},
		},
	})
	md.PlainText("")

	if r.Failed() {
		md.Cautionf("Scrape failed: %s", r.Error)
		md.PlainText("")
		return
	}
	if len(r.Data) == 0 {
		md.Note("No rule matched this document.")
		md.PlainText("")
		return
	}

	data, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		md.PlainText(formatValue(r.Data))
	} else {
		md.CodeBlocks(syntaxJSON, string(data))
	}
	md.PlainText("")
}

// WriteComparison outputs the comparison in Markdown format.
func (w *MarkdownWriter) WriteComparison(c *model.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Result Comparison: " + c.Source)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Previous", c.PreviousAt.Format("2006-01-02 15:04")},
			{"Current", c.CurrentAt.Format("2006-01-02 15:04")},
			{"Document Changed", strconv.FormatBool(c.ContentChanged)},
			{"Added Keys", strconv.Itoa(len(c.Added))},
			{"Removed Keys", strconv.Itoa(len(c.Removed))},
			{"Changed Keys", strconv.Itoa(len(c.Changed))},
			{"Unchanged Keys", strconv.Itoa(c.UnchangedCount)},
		},
	})
	md.PlainText("")

	if !c.HasChanges() {
		md.Tip("The extracted data did not change.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	if len(c.Added) > 0 {
		md.H2("Added")
		md.PlainText("")
		md.BulletList(c.Added...)
		md.PlainText("")
	}
	if len(c.Removed) > 0 {
		md.H2("Removed")
		md.PlainText("")
		md.BulletList(c.Removed...)
		md.PlainText("")
	}
	if len(c.Changed) > 0 {
		md.H2("Changed")
		md.PlainText("")
		rows := make([][]string, len(c.Changed))
		for i, ch := range c.Changed {
			rows[i] = []string{
				"`" + ch.Key + "`",
				truncateString(formatValue(ch.Previous), 60),
				truncateString(formatValue(ch.Current), 60),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Key", "Previous", "Current"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [piculet](https://github.com/nao1215/piculet)*")
}
