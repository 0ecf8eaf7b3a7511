package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoInput is returned when no document is given to scrape.
	ErrNoInput = errors.New("no input specified: provide a document path or - for stdin")

	// ErrNoSpec is returned when no spec is named and the configuration
	// file has no patterns to choose one per input.
	ErrNoSpec = errors.New("no spec specified: use --spec or add patterns to the config file")

	// ErrInvalidTimeout is returned when the timeout is negative.
	// Zero disables the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no document is ever scraped.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidDocType is returned when the document type override is not
	// one of html, xml or json.
	ErrInvalidDocType = errors.New("invalid document type: must be html, xml or json")

	// ErrInvalidMaxDocumentSize is returned when the max document size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxDocumentSize = errors.New("invalid max document size: must be non-negative")
)
