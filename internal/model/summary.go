package model

import "time"

// Summary aggregates a batch of results for the report header.
type Summary struct {
	// Total is the number of documents processed.
	Total int `json:"total"`

	// Succeeded is the number of documents scraped without error.
	Succeeded int `json:"succeeded"`

	// Failed is the number of documents whose scrape failed.
	Failed int `json:"failed"`

	// Empty is the number of successful scrapes that extracted nothing.
	Empty int `json:"empty"`

	// Bytes is the total size of the documents read.
	Bytes int64 `json:"bytes"`

	// Duration is the sum of the scrape durations. Batches run
	// concurrently, so it can exceed the wall clock time of the run.
	Duration time.Duration `json:"duration"`
}

// Summarize counts the outcomes of results. Nil entries are skipped.
func Summarize(results []*Result) Summary {
	var s Summary
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Total++
		s.Bytes += r.Size
		s.Duration += r.Duration
		switch {
		case r.Failed():
			s.Failed++
		case len(r.Data) == 0:
			s.Succeeded++
			s.Empty++
		default:
			s.Succeeded++
		}
	}
	return s
}
