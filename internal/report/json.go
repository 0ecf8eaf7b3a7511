package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/piculet/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because it honors the struct tags of the model types and
// sorts map keys, which keeps the output of repeated runs diffable.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// dataOnly makes Write output only the extracted data, the classic
	// output of a scrape.
	dataOnly bool

	// version is stamped into batch reports.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithDataOnly makes Write output the extracted data without metadata.
// A failed result is still written in full so the error is not lost.
func WithDataOnly() JSONWriterOption {
	return func(w *JSONWriter) {
		w.dataOnly = true
	}
}

// WithVersion sets the piculet version recorded in batch reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a result in JSON format.
func (w *JSONWriter) Write(result *model.Result) (int, error) {
	if w.dataOnly && !result.Failed() {
		data := result.Data
		if data == nil {
			data = map[string]any{}
		}
		return w.writeJSON(data)
	}
	return w.writeJSON(result)
}

// BatchReport is the JSON document written for a batch run.
//
// Design decision: We wrap the results rather than writing a bare list
// because this allows us to add the summary and version without polluting
// the result type.
type BatchReport struct {
	// Version is the piculet version that generated this report.
	Version string `json:"version,omitempty"`

	// Summary counts the outcomes of the batch.
	Summary model.Summary `json:"summary"`

	// Results holds every result, ordered by source.
	Results []*model.Result `json:"results"`
}

// NewBatchReport creates a BatchReport for results.
func NewBatchReport(results []*model.Result, version string) *BatchReport {
	return &BatchReport{
		Version: version,
		Summary: model.Summarize(results),
		Results: sortedResults(results),
	}
}

// WriteBatch outputs the batch wrapped with a summary.
func (w *JSONWriter) WriteBatch(results []*model.Result) (int, error) {
	return w.writeJSON(NewBatchReport(results, w.version))
}

// WriteComparison outputs the comparison in JSON format.
func (w *JSONWriter) WriteComparison(c *model.Comparison) (int, error) {
	return w.writeJSON(c)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
