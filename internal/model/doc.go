// Package model defines the data structures shared by the scrape pipeline,
// the result database and the report writers.
//
// This package contains the following main types:
//   - Result: The outcome of scraping one document with one spec
//   - Summary: Counts and timings for a batch of results
//   - Comparison: The differences between two results for the same source
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, database and report packages all use these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
