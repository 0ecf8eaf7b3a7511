package piculet

import (
	"github.com/nao1215/piculet/internal/document"
)

// Spec is a loaded scraping specification. It is built by Load, never
// modified afterwards, and safe for concurrent use.
//
// Scraping runs four steps: parse the document, run the preprocessors in
// order, extract the data with the spec's rules, and run the
// postprocessors in order.
type Spec struct {
	Collector

	// DocType is the document type Scrape parses documents as.
	// It may be empty when documents are always given with a type.
	DocType document.DocType

	// Pre and Post name the preprocessors and postprocessors.
	Pre  []string
	Post []string

	pre  []Preprocessor
	post []Postprocessor
}

// Scrape parses doc as the spec's document type and extracts its data.
func (s *Spec) Scrape(doc string) (map[string]any, error) {
	if s.DocType == "" {
		return nil, ErrNoDocType
	}
	return s.ScrapeAs(doc, s.DocType)
}

// ScrapeAs parses doc as dt, overriding the spec's document type, and
// extracts its data.
func (s *Spec) ScrapeAs(doc string, dt document.DocType) (map[string]any, error) {
	root, err := document.Parse(doc, dt)
	if err != nil {
		return nil, err
	}
	return s.ScrapeNode(root)
}

// ScrapeNode extracts data from an already parsed document. The
// preprocessors receive root as the first node.
func (s *Spec) ScrapeNode(root document.Node) (map[string]any, error) {
	root, err := s.Preprocess(root)
	if err != nil {
		return nil, err
	}
	data, err := s.Extract(root)
	if err != nil {
		return nil, err
	}
	return s.Postprocess(data)
}

// Preprocess runs the preprocessors over root in order.
func (s *Spec) Preprocess(root document.Node) (document.Node, error) {
	for i, fn := range s.pre {
		out, err := fn(root)
		if err != nil {
			return nil, &CallbackError{Stage: StagePreprocessor, Name: s.Pre[i], Err: err}
		}
		if out == nil {
			return nil, &CallbackError{Stage: StagePreprocessor, Name: s.Pre[i], Err: ErrNilNode}
		}
		root = out
	}
	return root, nil
}

// Extract applies the spec's root and rules to a node. Unlike
// Collector.Extract it always returns a map, empty when nothing matched.
func (s *Spec) Extract(root document.Node) (map[string]any, error) {
	node, ok, err := s.reroot(root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any{}, nil
	}
	return s.collect(node)
}

// Postprocess runs the postprocessors over data in order. A postprocessor
// returning a nil map hands an empty map to the next one.
func (s *Spec) Postprocess(data map[string]any) (map[string]any, error) {
	for i, fn := range s.post {
		out, err := fn(data)
		if err != nil {
			return nil, &CallbackError{Stage: StagePostprocessor, Name: s.Post[i], Err: err}
		}
		if out == nil {
			out = map[string]any{}
		}
		data = out
	}
	return data, nil
}
