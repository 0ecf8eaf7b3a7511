package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/nao1215/piculet/internal/config"
	"github.com/nao1215/piculet/internal/database"
	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/model"
	"github.com/nao1215/piculet/internal/piculet"
)

// gzipMagic is the header of gzip streams.
var gzipMagic = []byte{0x1f, 0x8b}

// ReadStep reads the document of a job from its source.
// The source is a file path, or "-" for standard input. Gzip compressed
// sources are decompressed transparently.
//
// Design decision: Compression is detected from the content rather than
// the file name, so compressed documents piped through stdin work too.
type ReadStep struct {
	// maxSize limits the size of a document after decompression.
	maxSize int64

	// stdin is read for the "-" source.
	stdin io.Reader

	// logger for structured logging.
	logger *slog.Logger
}

// ReadStepOption configures a ReadStep.
type ReadStepOption func(*ReadStep)

// WithMaxDocumentSize sets the maximum document size in bytes.
func WithMaxDocumentSize(size int64) ReadStepOption {
	return func(s *ReadStep) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// WithStdin sets the reader used for the "-" source.
func WithStdin(r io.Reader) ReadStepOption {
	return func(s *ReadStep) {
		s.stdin = r
	}
}

// WithReadLogger sets a custom logger for the read step.
func WithReadLogger(logger *slog.Logger) ReadStepOption {
	return func(s *ReadStep) {
		s.logger = logger
	}
}

// NewReadStep creates a new read step.
func NewReadStep(opts ...ReadStepOption) *ReadStep {
	s := &ReadStep{
		maxSize: config.DefaultMaxDocumentSize,
		stdin:   os.Stdin,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReadStep) Name() string {
	return "read"
}

// Do executes the read step.
func (s *ReadStep) Do(_ context.Context, job *Job) error {
	source := job.Result.Source

	var r io.Reader
	if source == model.StdinSource {
		r = s.stdin
	} else {
		f, err := os.Open(source) //nolint:gosec // reading user supplied documents is the purpose of this step
		if err != nil {
			return fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		r = f
	}

	br := bufio.NewReader(r)
	if magic, _ := br.Peek(len(gzipMagic)); string(magic) == string(gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to decompress document: %w", err)
		}
		defer zr.Close()
		s.logger.Debug("decompressing document", "source", source)
		r = zr
	} else {
		r = br
	}

	// Read one byte past the limit to tell "exactly max" from "too large"
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrDocumentTooLarge, source, s.maxSize)
	}

	job.Raw = data
	job.Result.SetContent(data)
	return nil
}

// ParseStep decodes the document of a job and parses it into a node.
//
// The document type is, in order of preference, the type the step was
// configured with, the type declared by the spec, or the type detected
// from the content.
type ParseStep struct {
	// docType overrides the spec's document type when set.
	docType document.DocType

	// fallback is the spec's document type.
	fallback document.DocType

	// charset overrides charset detection when set.
	charset string

	// logger for structured logging.
	logger *slog.Logger
}

// ParseStepOption configures a ParseStep.
type ParseStepOption func(*ParseStep)

// WithDocType forces the document type.
func WithDocType(dt document.DocType) ParseStepOption {
	return func(s *ParseStep) {
		s.docType = dt
	}
}

// WithCharset forces the charset documents are decoded from.
func WithCharset(label string) ParseStepOption {
	return func(s *ParseStep) {
		s.charset = label
	}
}

// WithParseLogger sets a custom logger for the parse step.
func WithParseLogger(logger *slog.Logger) ParseStepOption {
	return func(s *ParseStep) {
		s.logger = logger
	}
}

// NewParseStep creates a parse step for documents scraped with spec.
func NewParseStep(spec *piculet.Spec, opts ...ParseStepOption) *ParseStep {
	s := &ParseStep{
		fallback: spec.DocType,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parse step.
func (s *ParseStep) Do(_ context.Context, job *Job) error {
	if job.Raw == nil {
		return ErrNoDocument
	}

	dt, err := s.resolveDocType(job.Raw)
	if err != nil {
		return err
	}

	label := s.charset
	if label == "" && dt == document.HTML {
		label = document.DetectCharset(job.Raw)
	}

	text, err := document.DecodeCharset(job.Raw, label)
	if err != nil {
		return err
	}

	root, err := document.Parse(text, dt)
	if err != nil {
		return err
	}

	s.logger.Debug("parsed document",
		"source", job.Result.Source,
		"doctype", dt,
		"charset", label,
	)

	job.DocType = dt
	job.Root = root
	job.Result.DocType = dt.String()
	job.Result.Charset = label
	return nil
}

// resolveDocType picks the document type for data.
func (s *ParseStep) resolveDocType(data []byte) (document.DocType, error) {
	if s.docType != "" {
		return s.docType, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	if dt, ok := document.DetectDocType(data); ok {
		return dt, nil
	}
	return "", ErrUnknownDocType
}

// ScrapeStep runs a spec over the parsed document of a job.
type ScrapeStep struct {
	// spec is the loaded spec. It is shared by every job.
	spec *piculet.Spec
}

// NewScrapeStep creates a scrape step for spec.
func NewScrapeStep(spec *piculet.Spec) *ScrapeStep {
	return &ScrapeStep{spec: spec}
}

// Name returns the step name.
func (s *ScrapeStep) Name() string {
	return "scrape"
}

// Do executes the scrape step.
func (s *ScrapeStep) Do(_ context.Context, job *Job) error {
	if job.Root == nil {
		return ErrNoDocument
	}

	data, err := s.spec.ScrapeNode(job.Root)
	if err != nil {
		return err
	}

	job.Result.Data = data
	return nil
}

// StoreStep saves the result of a job to the result database.
// It runs for failed jobs too, so the history records failures.
type StoreStep struct {
	// db is the result database.
	db *database.ResultDB

	// logger for structured logging.
	logger *slog.Logger
}

// NewStoreStep creates a store step that writes to db.
func NewStoreStep(db *database.ResultDB, logger *slog.Logger) *StoreStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreStep{db: db, logger: logger}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do executes the store step.
func (s *StoreStep) Do(ctx context.Context, job *Job) error {
	if err := s.db.SaveResult(ctx, job.Result); err != nil {
		return err
	}

	s.logger.Debug("stored result",
		"source", job.Result.Source,
		"id", job.Result.ID,
	)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// DocType forces the document type. Empty uses the spec's type or
	// detection.
	DocType document.DocType

	// Charset forces the document charset. Empty detects it.
	Charset string

	// MaxDocumentSize is the maximum size of a document in bytes.
	MaxDocumentSize int64

	// Stdin is read for the "-" source. Nil uses os.Stdin.
	Stdin io.Reader

	// DB stores results when set.
	DB *database.ResultDB
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineDocType sets the document type for the pipeline.
func WithPipelineDocType(dt document.DocType) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DocType = dt
	}
}

// WithPipelineCharset sets the document charset for the pipeline.
func WithPipelineCharset(label string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Charset = label
	}
}

// WithPipelineMaxDocumentSize sets the maximum document size.
func WithPipelineMaxDocumentSize(size int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxDocumentSize = size
	}
}

// WithPipelineStdin sets the reader used for the "-" source.
func WithPipelineStdin(r io.Reader) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Stdin = r
	}
}

// WithPipelineDB makes the pipeline store every result in db.
func WithPipelineDB(db *database.ResultDB) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DB = db
	}
}

// DefaultPipeline creates a pipeline that reads, parses and scrapes a
// document with spec, and stores the result when a database is configured.
//
// Storing runs even after a failed step, so the pipeline continues on
// errors whenever a database is configured.
func DefaultPipeline(spec *piculet.Spec, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{
		MaxDocumentSize: config.DefaultMaxDocumentSize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	if cfg.DB != nil {
		pipelineOpts = append(pipelineOpts, WithContinueOnError(true))
	}
	p := New(pipelineOpts...)

	readOpts := []ReadStepOption{
		WithMaxDocumentSize(cfg.MaxDocumentSize),
		WithReadLogger(p.logger),
	}
	if cfg.Stdin != nil {
		readOpts = append(readOpts, WithStdin(cfg.Stdin))
	}

	parseOpts := []ParseStepOption{
		WithParseLogger(p.logger),
	}
	if cfg.DocType != "" {
		parseOpts = append(parseOpts, WithDocType(cfg.DocType))
	}
	if cfg.Charset != "" {
		parseOpts = append(parseOpts, WithCharset(cfg.Charset))
	}

	p.AddSteps(
		NewReadStep(readOpts...),
		NewParseStep(spec, parseOpts...),
		NewScrapeStep(spec),
	)
	if cfg.DB != nil {
		p.AddStep(NewStoreStep(cfg.DB, p.logger))
	}

	return p
}
