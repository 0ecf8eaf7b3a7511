package document

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("malformed document")

	// ErrEmptyDocument is wrapped by the *ParseError returned for a
	// document that is empty or holds only whitespace.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrInvalidDocType is returned for a document type other than
	// html, xml or json.
	ErrInvalidDocType = errors.New("invalid document type: must be html, xml or json")
)

// ParseError reports a document that could not be turned into a node.
type ParseError struct {
	// DocType is the type the document was parsed as.
	DocType DocType

	// Err is the error returned by the underlying parser.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s document: %v", e.DocType, e.Err)
}

// Unwrap exposes both ErrParse and the parser's own error to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
