package pipeline

import "errors"

// Sentinel errors for step failures.
// These allow callers to handle specific error conditions with errors.Is.
var (
	// ErrDocumentTooLarge is returned when a source exceeds the maximum
	// document size.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrUnknownDocType is returned when no document type was given and
	// none could be detected from the content.
	ErrUnknownDocType = errors.New("cannot detect document type")

	// ErrNoDocument is returned by steps that need a document an earlier
	// step should have produced.
	ErrNoDocument = errors.New("no document")
)
