// Package intake runs a review end to end: acquire the document, validate
// it, hand the local path to the analyzer, optionally archive it, and
// record the outcome. Every surface (CLI, web form, chat) goes through
// Service so the acquired file is released on every path.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/internal/analyze"
	"github.com/tonimelisma/planset-go/internal/history"
	"github.com/tonimelisma/planset-go/internal/sharelink"
	"github.com/tonimelisma/planset-go/internal/storage"
)

// ErrAnalysisFailed is wrapped by every AnalysisError.
var ErrAnalysisFailed = errors.New("intake: analysis failed")

var errNoContentURL = errors.New("attachment has no content URL")

// outcomeAnalysisFailed and outcomeError are recorded for failures that did
// not come from acquisition.
const (
	outcomeAnalysisFailed = "analysis_failed"
	outcomeError          = "error"
)

// AnalysisError reports that a valid PDF was acquired but could not be
// analyzed.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAnalysisFailed, e.Err)
}

// Unwrap exposes both ErrAnalysisFailed and the cause.
func (e *AnalysisError) Unwrap() []error {
	return []error{ErrAnalysisFailed, e.Err}
}

// Analyzer produces a report from a local PDF path.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*analyze.Analysis, error)
}

// Recorder persists review outcomes. *history.Store implements it.
type Recorder interface {
	Add(ctx context.Context, rec *history.Record) error
}

// Config wires a Service. Sink and History are optional.
type Config struct {
	Acquirer acquire.Acquirer
	Limits   acquire.Limits
	Analyzer Analyzer
	Sink     storage.Sink
	History  Recorder
	Logger   *slog.Logger
}

// Service runs reviews.
type Service struct {
	acquirer acquire.Acquirer
	limits   acquire.Limits
	analyzer Analyzer
	sink     storage.Sink
	history  Recorder
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limits := cfg.Limits
	if limits == (acquire.Limits{}) {
		limits = acquire.DefaultLimits()
	}

	return &Service{
		acquirer: cfg.Acquirer,
		limits:   limits,
		analyzer: cfg.Analyzer,
		sink:     cfg.Sink,
		history:  cfg.History,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Limits returns the ceilings the service validates against.
func (s *Service) Limits() acquire.Limits {
	return s.limits
}

// Request is one review.
type Request struct {
	Source   acquire.Source
	Progress func(msg string) // optional; receives progress copy in order
}

// Result is a completed review.
type Result struct {
	ID         string             `json:"id"`
	FileName   string             `json:"file_name"`
	SizeBytes  int64              `json:"size_bytes"`
	Provenance acquire.Provenance `json:"provenance"`
	PageCount  int                `json:"page_count"`
	Report     string             `json:"report"`
	Summary    analyze.Summary    `json:"data"`
	StoredKey  string             `json:"stored_key,omitempty"`
}

// Review acquires, validates, and analyzes req.Source. The acquired file
// is released before Review returns, whatever the outcome.
func (s *Service) Review(ctx context.Context, req Request) (*Result, error) {
	id := s.newID()
	start := s.now()

	rec := &history.Record{
		ID:        id,
		CreatedAt: start,
		Channel:   channelName(req.Source.Kind),
		Source:    sourceLabel(req.Source),
	}

	res, err := s.review(ctx, id, req, rec)

	rec.Duration = s.now().Sub(start)
	rec.Outcome = outcome(err)

	if err != nil {
		rec.Error = err.Error()

		s.logger.Warn("review failed",
			slog.String("id", id),
			slog.String("channel", rec.Channel),
			slog.String("outcome", rec.Outcome),
			slog.String("error", err.Error()),
		)
	}

	s.record(ctx, rec)

	return res, err
}

func (s *Service) review(ctx context.Context, id string, req Request, rec *history.Record) (*Result, error) {
	file, err := s.acquirer.Acquire(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	defer file.Release()

	rec.Provenance = string(file.Provenance)
	rec.FileName = file.DeclaredName
	rec.SizeBytes = file.Size

	if err := acquire.Validate(file, s.limits); err != nil {
		return nil, err
	}

	analysis, err := s.analyzer.Analyze(ctx, file.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("intake: review canceled: %w", ctxErr)
		}

		return nil, &AnalysisError{Err: err}
	}

	rec.PageCount = analysis.PageCount
	progress(req, ProcessingAnalysis(analysis.PageCount))

	res := &Result{
		ID:         id,
		FileName:   file.DeclaredName,
		SizeBytes:  file.Size,
		Provenance: file.Provenance,
		PageCount:  analysis.PageCount,
		Report:     analysis.Report,
		Summary:    analysis.Summary,
	}

	if s.sink != nil {
		res.StoredKey = s.store(ctx, id, file)
		rec.StoredKey = res.StoredKey
	}

	s.logger.Info("review complete",
		slog.String("id", id),
		slog.String("provenance", string(file.Provenance)),
		slog.Int64("bytes", file.Size),
		slog.Int("pages", analysis.PageCount),
	)

	return res, nil
}

// store archives the file. A sink failure does not fail the review.
func (s *Service) store(ctx context.Context, id string, file *acquire.AcquiredFile) string {
	name := file.DeclaredName
	if name == "" {
		name = acquire.DefaultName
	}

	key, err := s.sink.Store(ctx, file.Path, acquire.SanitizeName(name), file.ContentType)
	if err != nil {
		s.logger.Warn("failed to archive planset",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)

		return ""
	}

	return key
}

func (s *Service) record(ctx context.Context, rec *history.Record) {
	if s.history == nil {
		return
	}

	// The outcome is recorded even when the caller's context is done.
	if err := s.history.Add(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record review",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

func progress(req Request, msg string) {
	if req.Progress != nil {
		req.Progress(msg)
	}
}

func outcome(err error) string {
	if err == nil {
		return history.OutcomeOK
	}

	if kind := acquire.KindOf(err); kind != nil {
		return acquire.KindName(kind)
	}

	if errors.Is(err, ErrAnalysisFailed) {
		return outcomeAnalysisFailed
	}

	return outcomeError
}

func channelName(kind acquire.SourceKind) string {
	switch kind {
	case acquire.SourceShareLink:
		return "link"
	case acquire.SourceAttachment:
		return "attachment"
	case acquire.SourceUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// sourceLabel names the source in the review ledger. Sharing links are
// stored redacted.
func sourceLabel(src acquire.Source) string {
	if src.Kind == acquire.SourceShareLink {
		return sharelink.Redact(src.URL)
	}

	return src.Name
}
