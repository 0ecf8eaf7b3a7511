package model

import (
	"slices"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Change is a top level key whose value differs between two results.
type Change struct {
	// Key is the data key.
	Key string `json:"key"`

	// Previous is the value in the older result.
	Previous any `json:"previous"`

	// Current is the value in the newer result.
	Current any `json:"current"`
}

// Comparison holds the differences between two results for the same source.
type Comparison struct {
	// Source is the compared input.
	Source string `json:"source"`

	// PreviousAt and CurrentAt are the scrape times of the two results.
	PreviousAt time.Time `json:"previous_at"`
	CurrentAt  time.Time `json:"current_at"`

	// ContentChanged is true when the raw documents differ.
	ContentChanged bool `json:"content_changed"`

	// Added lists the keys present only in the current result.
	Added []string `json:"added,omitempty"`

	// Removed lists the keys present only in the previous result.
	Removed []string `json:"removed,omitempty"`

	// Changed lists the keys whose values differ.
	Changed []Change `json:"changed,omitempty"`

	// UnchangedCount is the number of keys with equal values.
	UnchangedCount int `json:"unchanged_count"`
}

// Compare computes the differences between an older and a newer result.
// Keys are reported in sorted order.
func Compare(previous, current *Result) *Comparison {
	c := &Comparison{
		Source:         current.Source,
		PreviousAt:     previous.ScrapedAt,
		CurrentAt:      current.ScrapedAt,
		ContentChanged: previous.Digest != current.Digest,
	}

	for _, key := range current.Keys() {
		before, ok := previous.Data[key]
		if !ok {
			c.Added = append(c.Added, key)
			continue
		}
		after := current.Data[key]
		if cmp.Equal(before, after) {
			c.UnchangedCount++
			continue
		}
		c.Changed = append(c.Changed, Change{Key: key, Previous: before, Current: after})
	}

	for _, key := range previous.Keys() {
		if _, ok := current.Data[key]; !ok {
			c.Removed = append(c.Removed, key)
		}
	}
	slices.Sort(c.Removed)

	return c
}

// HasChanges reports whether the extracted data differs.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Changed) > 0
}
