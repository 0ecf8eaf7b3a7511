package piculet

import (
	"errors"
	"fmt"
)

// Spec loading errors. Every error returned by Load matches ErrSpecLoad
// and, where one applies, one of the more specific sentinels below.
var (
	// ErrSpecLoad is matched by every *LoadError.
	ErrSpecLoad = errors.New("invalid spec")

	// ErrUnknownField is returned for a field the description format
	// does not define.
	ErrUnknownField = errors.New("unknown field")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidType is returned when a field holds a value of the wrong type.
	ErrInvalidType = errors.New("invalid field type")

	// ErrAmbiguousExtractor is returned for an extractor that has both
	// a path and rules.
	ErrAmbiguousExtractor = errors.New("extractor must have either path or rules, not both")

	// ErrUnknownTransform is returned when a transform name is not in the registry.
	ErrUnknownTransform = errors.New("unknown transform")

	// ErrUnknownPreprocessor is returned when a preprocessor name is not in the registry.
	ErrUnknownPreprocessor = errors.New("unknown preprocessor")

	// ErrUnknownPostprocessor is returned when a postprocessor name is not in the registry.
	ErrUnknownPostprocessor = errors.New("unknown postprocessor")

	// ErrDialectMismatch is returned when a query cannot apply to the
	// node kind of the declared document type.
	ErrDialectMismatch = errors.New("query dialect does not match document type")
)

// Scraping errors.
var (
	// ErrNoDocType is returned by Spec.Scrape when the spec declares no
	// document type and none was given.
	ErrNoDocType = errors.New("no document type: declare doctype in the spec or pass one explicitly")

	// ErrNilNode is wrapped in a *CallbackError when a preprocessor
	// returns no node.
	ErrNilNode = errors.New("preprocessor returned a nil node")
)

// LoadError reports where in a spec description loading failed.
type LoadError struct {
	// Path locates the offending value, for example "rules[2].extractor.path".
	// It is empty for errors about the description as a whole.
	Path string

	// Err describes the failure.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid spec: %v", e.Err)
	}
	return fmt.Sprintf("invalid spec at %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrSpecLoad and the underlying error to errors.Is.
func (e *LoadError) Unwrap() []error {
	return []error{ErrSpecLoad, e.Err}
}

// Stage identifies the kind of named function that failed.
type Stage string

// Callback stages.
const (
	StageTransform     Stage = "transform"
	StagePreprocessor  Stage = "preprocessor"
	StagePostprocessor Stage = "postprocessor"
)

// CallbackError annotates an error returned by a registered function
// with the function's name. Unwrap returns the function's own error
// unchanged, so errors.Is and errors.As see through it.
type CallbackError struct {
	Stage Stage
	Name  string
	Err   error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Stage, e.Name, e.Err)
}

// Unwrap returns the error of the failing function.
func (e *CallbackError) Unwrap() error {
	return e.Err
}
