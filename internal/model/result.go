package model

import (
	"encoding/hex"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// StdinSource is the source name of a document read from standard input.
const StdinSource = "-"

// Result is the outcome of scraping one document with one spec.
//
// Design decision: A failed scrape is still a Result, with Error set and
// Data empty. Batch runs report every input, and keeping failures in the
// same type lets the writers and the database treat them uniformly.
type Result struct {
	// ID identifies the result. It is unique across runs so results from
	// different machines can be merged into one database.
	ID uuid.UUID `json:"id"`

	// Source is the input the document came from: a file path or "-".
	Source string `json:"source"`

	// Spec is the name of the spec the document was scraped with.
	Spec string `json:"spec"`

	// DocType is the type the document was parsed as.
	DocType string `json:"doctype,omitempty"`

	// Charset is the character set detected for HTML documents.
	Charset string `json:"charset,omitempty"`

	// Size is the number of bytes read from the source.
	Size int64 `json:"size"`

	// Digest is the hex SHA3-256 of the raw document. Two results with the
	// same digest were scraped from identical content.
	Digest string `json:"digest,omitempty"`

	// Data is the extracted data.
	Data map[string]any `json:"data,omitempty"`

	// Error contains the error message if the scrape failed.
	Error string `json:"error,omitempty"`

	// ScrapedAt is when the scrape started.
	ScrapedAt time.Time `json:"scraped_at"`

	// Duration is how long reading, parsing and extraction took.
	Duration time.Duration `json:"duration"`
}

// NewResult creates a Result for a source with a fresh ID and the current
// time.
func NewResult(source, spec string) *Result {
	return &Result{
		ID:        uuid.New(),
		Source:    source,
		Spec:      spec,
		ScrapedAt: time.Now(),
	}
}

// SetContent records the size and digest of the raw document.
func (r *Result) SetContent(raw []byte) {
	sum := sha3.Sum256(raw)
	r.Size = int64(len(raw))
	r.Digest = hex.EncodeToString(sum[:])
}

// Fail records err as the outcome of the scrape.
func (r *Result) Fail(err error) {
	r.Error = err.Error()
	r.Data = nil
}

// Failed reports whether the scrape failed.
func (r *Result) Failed() bool {
	return r.Error != ""
}

// Keys returns the top level keys of the extracted data, sorted.
func (r *Result) Keys() []string {
	return slices.Sorted(maps.Keys(r.Data))
}
