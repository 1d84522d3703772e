// Package assess orchestrates the assessment pipeline: transcription,
// alignment, scoring, highlighting, and persistence. It owns the registry of
// live reading sessions and is the only layer that touches the session store.
//
// The batch operations are pure pipelines over their inputs; the live
// operations mutate per-session trackers, which serialise concurrent writers
// internally.
package assess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/grammar"
	"github.com/oratio-labs/oratio/internal/highlight"
	"github.com/oratio-labs/oratio/internal/observe"
	"github.com/oratio-labs/oratio/internal/score"
	"github.com/oratio-labs/oratio/internal/sessionstore"
	"github.com/oratio-labs/oratio/internal/text"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

// ErrInvalidInput is returned when a request carries no usable passage or
// transcript.
var ErrInvalidInput = errors.New("assess: invalid input")

// ErrSessionNotFound is returned by live operations for unknown session IDs.
var ErrSessionNotFound = errors.New("assess: session not found")

// Config holds the dependencies and defaults for a [Service].
type Config struct {
	// Provider is the transcription backend. May be nil; audio paths then
	// return [ErrNoProvider].
	Provider stt.Provider

	// Store persists sessions and results. May be nil; assessment still
	// works, nothing is persisted.
	Store sessionstore.Store

	// Metrics receives pipeline instrumentation. May be nil.
	Metrics *observe.Metrics

	// DefaultGrade is assumed when a request carries no grade. Zero means
	// grade 5 (middle of the benchmark table).
	DefaultGrade int

	// Language is the default BCP-47 tag for transcription.
	Language string
}

// Service is the assessment orchestrator.
type Service struct {
	provider stt.Provider
	store    sessionstore.Store
	metrics  *observe.Metrics

	// mu guards the reloadable defaults.
	mu       sync.RWMutex
	grade    int
	language string

	live *registry
}

// New creates a [Service] from cfg.
func New(cfg Config) *Service {
	grade := cfg.DefaultGrade
	if grade == 0 {
		grade = 5
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en-US"
	}
	return &Service{
		provider: cfg.Provider,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		grade:    grade,
		language: lang,
		live:     newRegistry(),
	}
}

// CompareRequest asks for a word-by-word comparison of a reading against its
// passage.
type CompareRequest struct {
	// Passage is the reference text.
	Passage string

	// SpokenText is the transcript of the reading.
	SpokenText string

	// Words carries per-word transcription detail when the provider supplied
	// it. When empty, words are recovered from SpokenText.
	Words []align.SpokenWord
}

// Comparison is the outcome of a batch comparison.
type Comparison struct {
	Segments []highlight.Segment `json:"segments"`
	Stats    align.Stats         `json:"statistics"`

	// AccuracyPercentage is the share of reference words read correctly,
	// truncated to a whole percent.
	AccuracyPercentage int `json:"accuracy_percentage"`
}

// Compare aligns the reading against the passage and returns the highlighted
// segments with aggregate counts.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	words := text.Tokenize(req.Passage)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: passage contains no words", ErrInvalidInput)
	}

	spoken := req.Words
	if len(spoken) == 0 {
		for _, w := range text.Fields(req.SpokenText) {
			spoken = append(spoken, align.SpokenWord{Text: w})
		}
	}

	start := time.Now()
	res := align.Align(text.LowerTexts(words), spoken)
	if s.metrics != nil {
		s.metrics.AlignmentDuration.Record(ctx, time.Since(start).Seconds())
	}

	accuracy := 0
	if res.Stats.Total > 0 {
		accuracy = res.Stats.Correct * 100 / res.Stats.Total
	}
	return &Comparison{
		Segments:           highlight.FromResult(req.Passage, res),
		Stats:              res.Stats,
		AccuracyPercentage: accuracy,
	}, nil
}

// ReportRequest asks for a reading analysis.
type ReportRequest struct {
	Passage    string
	SpokenText string
	Words      []align.SpokenWord
	Duration   time.Duration
	Grade      int

	// Grammar optionally blends an external grammar evaluation into the
	// comprehensive report.
	Grammar *grammar.Evaluation

	// SessionID optionally attaches the result to a stored session.
	SessionID string
}

// Analyze produces the basic reading summary.
func (s *Service) Analyze(ctx context.Context, req ReportRequest) (*score.Summary, error) {
	if err := s.checkReport(req); err != nil {
		return nil, err
	}
	sum := score.Analyze(req.Passage, req.SpokenText, s.gradeOr(req.Grade), req.Duration)
	s.recordAssessment(ctx, "batch", "ok")
	s.persistResult(ctx, req.SessionID, sessionstore.KindAssessment, sum)
	return &sum, nil
}

// Report produces the comprehensive reading analysis, blending the optional
// grammar evaluation.
func (s *Service) Report(ctx context.Context, req ReportRequest) (*score.Report, error) {
	if err := s.checkReport(req); err != nil {
		return nil, err
	}

	start := time.Now()
	rep := score.Comprehensive(req.Passage, req.SpokenText, req.Words,
		req.Duration, s.gradeOr(req.Grade), req.Grammar)
	if s.metrics != nil {
		s.metrics.AssessmentDuration.Record(ctx, time.Since(start).Seconds())
	}

	status := "ok"
	if len(req.Words) == 0 {
		// Word statistics were estimated from whole-text similarity.
		status = "degraded"
	}
	s.recordAssessment(ctx, "batch", status)
	s.persistResult(ctx, req.SessionID, sessionstore.KindReport, rep)
	return &rep, nil
}

func (s *Service) checkReport(req ReportRequest) error {
	if len(text.Fields(req.Passage)) == 0 {
		return fmt.Errorf("%w: passage contains no words", ErrInvalidInput)
	}
	return nil
}

// SetDefaults replaces the fallback grade and language, for configuration
// hot reload. Zero or empty values leave the current default in place.
func (s *Service) SetDefaults(grade int, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if grade > 0 {
		s.grade = grade
	}
	if language != "" {
		s.language = language
	}
}

func (s *Service) gradeOr(grade int) int {
	if grade > 0 {
		return grade
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grade
}

func (s *Service) defaultLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *Service) recordAssessment(ctx context.Context, mode, status string) {
	if s.metrics != nil {
		s.metrics.RecordAssessment(ctx, mode, status)
	}
}

// persistResult appends a result record to the session, best-effort: results
// are derived data and a storage failure must not fail the assessment.
func (s *Service) persistResult(ctx context.Context, sessionID, kind string, payload any) {
	if s.store == nil || sessionID == "" {
		return
	}
	if err := sessionstore.AppendJSON(ctx, s.store, sessionID, kind, payload); err != nil {
		observe.Logger(ctx).Warn("failed to persist assessment result",
			"session_id", sessionID, "kind", kind, "err", err)
	}
}
