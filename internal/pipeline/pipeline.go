package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/model"
)

// Job carries one document through the pipeline. Each step reads what the
// previous steps produced and fills in its own part.
type Job struct {
	// Result is the outcome reported to the user. It is never nil.
	Result *model.Result

	// Raw holds the bytes read from the source.
	Raw []byte

	// DocType is the type the document is parsed as. It may be set before
	// the pipeline runs to override detection.
	DocType document.DocType

	// Root is the parsed document.
	Root document.Node
}

// NewJob creates a job for a source scraped with the named spec.
func NewJob(source, spec string) *Job {
	return &Job{Result: model.NewResult(source, spec)}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the job
// accumulated by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the job to modify.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the result, but subsequent steps still execute.
//
// Design decision: The default is to stop on error because every step
// depends on the output of the one before it. Continuing is useful when
// the last step stores the result, so failures are recorded too.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and records how long they
// took in the job's result.
//
// The first error is recorded in the result. It is returned when
// continueOnError is false; otherwise the remaining steps run and nil is
// returned.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	start := time.Now()
	defer func() {
		job.Result.Duration = time.Since(start)
	}()

	for _, step := range p.steps {
		// Check for cancellation before starting each step
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			if !job.Result.Failed() {
				job.Result.Fail(ctx.Err())
			}
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"source", job.Result.Source,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"source", job.Result.Source,
				"error", err,
			)

			// Keep the first error; later steps fail because of it
			if !job.Result.Failed() {
				job.Result.Fail(err)
			}

			if !p.continueOnError {
				return err
			}
		}
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
