package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/piculet/internal/config"
	"github.com/nao1215/piculet/internal/model"
)

// BatchProcessor handles concurrent processing of multiple documents.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-document execution
// 2. It allows different batch strategies (e.g., streaming output)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each document.
	// We use a factory to ensure each document gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// jobFactory creates the job for a source.
	jobFactory func(source string) *Job

	// concurrency is the maximum number of concurrent scrapes.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// metrics records batch outcomes when set.
	metrics *Metrics
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scrapes.
// Default is config.DefaultBatchSize if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithMetrics records the outcome of every document in m.
func WithMetrics(m *Metrics) BatchOption {
	return func(b *BatchProcessor) {
		b.metrics = m
	}
}

// WithSpecName sets the spec name recorded in every result.
func WithSpecName(name string) BatchOption {
	return func(b *BatchProcessor) {
		b.jobFactory = func(source string) *Job {
			return NewJob(source, name)
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each document to create a
// fresh pipeline instance. This ensures that pipeline state doesn't leak
// between documents.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		jobFactory: func(source string) *Job {
			return NewJob(source, "")
		},
		concurrency: config.DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scrapes multiple documents concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each document gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Results are returned in the order of sources, one per source, including
// failed ones. Sources that were never started because the context was
// cancelled have nil entries, and the context error is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []string) ([]*model.Result, error) {
	results := make([]*model.Result, len(sources))

	// Each goroutine writes its own index, so no lock is needed
	err := bp.ProcessBatchWithCallback(ctx, sources, func(result *model.Result, index int) {
		results[index] = result
	})

	return results, err
}

// ProcessBatchWithCallback scrapes multiple documents and calls a callback
// for each completed document. This is useful for streaming results.
//
// The callback receives the result and the index of the source in the
// original slice. The callback is called from the goroutine that completed
// the scrape, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(result *model.Result, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_documents", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			job := bp.jobFactory(source)
			pipeline := bp.pipelineFactory()
			if err := pipeline.Execute(ctx, job); err != nil {
				// The error is recorded in the result; other documents continue
				bp.logger.Warn("scrape failed",
					"source", source,
					"error", err,
				)
			} else {
				bp.logger.Debug("scrape completed",
					"source", source,
					"keys", len(job.Result.Data),
				)
			}

			if bp.metrics != nil {
				bp.metrics.Observe(job.Result)
			}
			callback(job.Result, i)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	if bp.metrics != nil {
		bp.metrics.ObserveRun(elapsed)
	}
	bp.logger.Info("batch processing complete",
		"total_documents", len(sources),
		"elapsed", elapsed,
	)

	return err
}
