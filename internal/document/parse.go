package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ohler55/ojg/oj"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// DocType names the format of a document.
type DocType string

// Supported document types.
const (
	HTML DocType = "html"
	XML  DocType = "xml"
	JSON DocType = "json"
)

// DocTypes lists every supported document type in a stable order.
var DocTypes = []DocType{HTML, XML, JSON}

// ParseDocType converts a name to a DocType. Matching ignores case and
// surrounding whitespace.
func ParseDocType(s string) (DocType, error) {
	dt := DocType(strings.ToLower(strings.TrimSpace(s)))
	if !dt.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocType, s)
	}
	return dt, nil
}

// Valid reports whether dt is one of the supported document types.
func (dt DocType) Valid() bool {
	switch dt {
	case HTML, XML, JSON:
		return true
	default:
		return false
	}
}

// Kind returns the node kind a document of this type parses into.
func (dt DocType) Kind() Kind {
	if dt == JSON {
		return KindMap
	}
	return KindTree
}

// String implements fmt.Stringer.
func (dt DocType) String() string { return string(dt) }

// Parse builds the root node of a document.
//
// HTML is parsed leniently by golang.org/x/net/html and rarely fails.
// XML must be well formed. JSON must be a single valid JSON value.
// A document of any type that is empty or only whitespace is rejected
// with ErrEmptyDocument. Failures are reported as *ParseError.
func Parse(doc string, dt DocType) (Node, error) {
	if dt.Valid() && strings.TrimSpace(doc) == "" {
		return nil, &ParseError{DocType: dt, Err: ErrEmptyDocument}
	}

	switch dt {
	case HTML:
		root, err := htmlquery.Parse(strings.NewReader(doc))
		if err != nil {
			return nil, &ParseError{DocType: dt, Err: err}
		}
		return NewHTML(root), nil
	case XML:
		root, err := xmlquery.Parse(strings.NewReader(doc))
		if err != nil {
			return nil, &ParseError{DocType: dt, Err: err}
		}
		return NewXML(root), nil
	case JSON:
		value, err := oj.ParseString(doc)
		if err != nil {
			return nil, &ParseError{DocType: dt, Err: err}
		}
		return NewMap(value), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocType, string(dt))
	}
}

// Decode converts raw document bytes to UTF-8 text.
//
// HTML bytes are run through charset detection and transcoded when the
// detected charset is not UTF-8. XML is passed through unchanged because
// xmlquery honours the encoding in the XML declaration itself. JSON is
// always UTF-8.
//
// A charset that cannot be detected or has no decoder leaves the bytes
// as they are.
func Decode(data []byte, dt DocType) (string, error) {
	if dt != HTML {
		return string(data), nil
	}
	return DecodeCharset(data, DetectCharset(data))
}

// DecodeCharset converts data from the named charset to UTF-8 text.
// A label without a decoder leaves the bytes as they are.
func DecodeCharset(data []byte, label string) (string, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" || label == "ascii" || label == "us-ascii" {
		return string(data), nil
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return string(data), nil //nolint:nilerr // unknown labels fall back to raw bytes
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to transcode document from %s: %w", label, err)
	}
	return string(decoded), nil
}

// DetectCharset returns the lower-case name of the most likely charset
// of data, or "utf-8" when detection fails.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// DetectDocType guesses the document type from its content.
// It reports false when the content is none of the supported types.
func DetectDocType(data []byte) (DocType, bool) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is("text/html"):
			return HTML, true
		case m.Is("application/json"):
			return JSON, true
		case m.Is("text/xml"), m.Is("application/xml"):
			return XML, true
		}
	}
	return "", false
}
