// Package pipeline provides a framework for executing scrape steps in sequence.
//
// The pipeline pattern is used to process documents through multiple
// stages: reading the source, parsing it into a node, running the spec, and
// storing the result. Each stage is implemented as a Step that receives the
// current job and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps (storing is optional)
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for large batches
//
// The pipeline supports both individual documents and batch processing with
// concurrency control using errgroup. Batch outcomes can be exported as
// Prometheus metrics.
package pipeline
