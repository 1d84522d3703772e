package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oratio-labs/oratio/internal/highlight"
	"github.com/oratio-labs/oratio/internal/observe"
	"github.com/oratio-labs/oratio/internal/sessionstore"
	"github.com/oratio-labs/oratio/internal/text"
	"github.com/oratio-labs/oratio/internal/track"
)

// registry holds the in-flight live sessions. Trackers are memory-resident;
// the store only sees serialized snapshots.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*liveSession)}
}

func (r *registry) add(s *liveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *registry) get(id string) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// liveSession pairs a tracker with the session metadata it was prepared for.
type liveSession struct {
	id        string
	passage   string
	grade     int
	tracker   *track.Tracker
	startedAt time.Time
}

// liveState is the serialized tracker snapshot written to the store.
type liveState struct {
	Words  []track.Word `json:"words"`
	Cursor int          `json:"cursor"`
}

// LiveSession describes a freshly prepared live reading session.
type LiveSession struct {
	ID      string       `json:"session_id"`
	Passage string       `json:"passage"`
	Grade   int          `json:"grade"`
	Words   []track.Word `json:"words"`
}

// Progress is the outcome of feeding one chunk of recognised speech into a
// live session.
type Progress struct {
	Updates  []track.Update      `json:"updates"`
	Cursor   int                 `json:"cursor"`
	Segments []highlight.Segment `json:"segments"`
}

// LiveSummary is the final report of a live reading session.
type LiveSummary struct {
	SessionID string      `json:"session_id"`
	Stats     track.Stats `json:"statistics"`

	// AccuracyPercentage is the share of reference words read correctly,
	// to one decimal place.
	AccuracyPercentage float64 `json:"accuracy_percentage"`

	// FluencyScore is the same ratio truncated to a whole percent.
	FluencyScore int `json:"fluency_score"`

	// ReadPercentage is the share of reference words attempted at all
	// (correct or incorrect), truncated to a whole percent.
	ReadPercentage int `json:"read_percentage"`

	FluencyLevel    string `json:"fluency_level"`
	CompletionLevel string `json:"completion_level"`
	AccuracyLevel   string `json:"accuracy_level"`

	// Transcript reconstructs what the reader actually said: the reference
	// words they attempted, in passage order.
	Transcript string `json:"transcript"`

	Recommendations []string            `json:"recommendations"`
	Segments        []highlight.Segment `json:"segments"`
	Duration        time.Duration       `json:"duration"`
}

// Prepare opens a live session for the passage. The session is held in
// memory and, when a store is configured, mirrored there for restarts and
// later result retrieval.
func (s *Service) Prepare(ctx context.Context, passage string, grade int) (*LiveSession, error) {
	words := text.Tokenize(passage)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: passage contains no words", ErrInvalidInput)
	}

	ls := &liveSession{
		id:        uuid.NewString(),
		passage:   passage,
		grade:     s.gradeOr(grade),
		tracker:   track.New(words),
		startedAt: time.Now(),
	}
	s.live.add(ls)

	if s.store != nil {
		err := s.store.PutSession(ctx, sessionstore.Session{
			ID:      ls.id,
			Passage: passage,
			Grade:   ls.grade,
		})
		if err != nil {
			s.live.remove(ls.id)
			return nil, fmt.Errorf("assess: store session: %w", err)
		}
	}
	if s.metrics != nil {
		s.metrics.LiveSessions.Add(ctx, 1)
	}

	observe.Logger(ctx).Info("live session prepared",
		"session_id", ls.id, "words", len(words), "grade", ls.grade)
	return &LiveSession{
		ID:      ls.id,
		Passage: passage,
		Grade:   ls.grade,
		Words:   ls.tracker.Words(),
	}, nil
}

// Process feeds a chunk of newly recognised spoken words into the session
// and returns the resulting status changes with re-rendered highlighting.
func (s *Service) Process(ctx context.Context, sessionID string, chunk []string) (*Progress, error) {
	ls, ok := s.live.get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	updates, cursor, err := ls.tracker.Consume(chunk)
	if err != nil {
		return nil, fmt.Errorf("assess: process chunk: %w", err)
	}

	snapshot := ls.tracker.Words()
	s.persistState(ctx, ls, snapshot, cursor)

	return &Progress{
		Updates:  updates,
		Cursor:   cursor,
		Segments: highlight.FromTracked(ls.passage, snapshot),
	}, nil
}

// MarkCurrent points the session at the word being spoken right now, for
// follow-along display. Out-of-range indices are rejected by the tracker.
func (s *Service) MarkCurrent(ctx context.Context, sessionID string, index int) error {
	ls, ok := s.live.get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err := ls.tracker.SetStatus(index, track.StatusCurrent); err != nil {
		return fmt.Errorf("assess: mark current: %w", err)
	}
	return nil
}

// Finalize closes the session and builds its summary. Words never reached
// count as skipped. The summary is persisted best-effort and the session is
// dropped from the registry.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*LiveSummary, error) {
	ls, ok := s.live.get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	words, stats, err := ls.tracker.Finalize()
	if err != nil {
		return nil, fmt.Errorf("assess: finalize session: %w", err)
	}

	sum := summarize(ls, words, stats)
	s.persistResult(ctx, sessionID, sessionstore.KindLiveSummary, sum)
	s.live.remove(sessionID)

	if s.metrics != nil {
		s.metrics.LiveSessions.Add(ctx, -1)
	}
	s.recordAssessment(ctx, "live", "ok")

	observe.Logger(ctx).Info("live session finalized",
		"session_id", sessionID,
		"correct", stats.Correct, "incorrect", stats.Incorrect, "skipped", stats.Skipped)
	return sum, nil
}

func summarize(ls *liveSession, words []track.Word, stats track.Stats) *LiveSummary {
	sum := &LiveSummary{
		SessionID: ls.id,
		Stats:     stats,
		Segments:  highlight.FromTracked(ls.passage, words),
		Duration:  time.Since(ls.startedAt),
	}

	if stats.Total > 0 {
		sum.AccuracyPercentage = math.Round(float64(stats.Correct)/float64(stats.Total)*1000) / 10
		sum.FluencyScore = stats.Correct * 100 / stats.Total
		sum.ReadPercentage = (stats.Correct + stats.Incorrect) * 100 / stats.Total
	}

	switch {
	case sum.FluencyScore >= 90:
		sum.FluencyLevel = "Excellent"
	case sum.FluencyScore >= 75:
		sum.FluencyLevel = "Good"
	case sum.FluencyScore >= 60:
		sum.FluencyLevel = "Fair"
	default:
		sum.FluencyLevel = "Needs Improvement"
	}
	switch {
	case sum.ReadPercentage >= 90:
		sum.CompletionLevel = "Complete"
	case sum.ReadPercentage >= 75:
		sum.CompletionLevel = "Mostly Complete"
	case sum.ReadPercentage >= 50:
		sum.CompletionLevel = "Partial"
	default:
		sum.CompletionLevel = "Incomplete"
	}
	switch {
	case sum.AccuracyPercentage >= 90:
		sum.AccuracyLevel = "High"
	case sum.AccuracyPercentage >= 70:
		sum.AccuracyLevel = "Medium"
	default:
		sum.AccuracyLevel = "Low"
	}

	var attempted []string
	for _, w := range words {
		if w.Status == track.StatusCorrect || w.Status == track.StatusIncorrect {
			attempted = append(attempted, w.Text)
		}
	}
	sum.Transcript = strings.Join(attempted, " ")
	sum.Recommendations = recommendations(stats, sum.AccuracyPercentage)
	return sum
}

// recommendations derives practice advice from the final counts. Thresholds:
// accuracy below 80%, more than a fifth of words skipped, more than a tenth
// misread.
func recommendations(stats track.Stats, accuracy float64) []string {
	var recs []string
	if accuracy < 80 {
		recs = append(recs,
			"Focus on pronouncing each word clearly and carefully.",
			"Practice reading aloud for 15 minutes daily.")
	}
	if float64(stats.Skipped) > float64(stats.Total)*0.2 {
		recs = append(recs,
			"Work on reading all words instead of skipping difficult ones.",
			"Try reading at a slightly slower pace for better accuracy.")
	}
	if float64(stats.Incorrect) > float64(stats.Total)*0.1 {
		recs = append(recs,
			"Practice the mispronounced words separately.",
			"Record yourself reading and listen to identify areas for improvement.")
	}
	if len(recs) == 0 {
		recs = []string{
			"Continue your excellent reading practice.",
			"Try more challenging texts to further improve your skills.",
			"Focus on expression and intonation for even better reading.",
		}
	}
	return recs
}

// persistState mirrors the tracker snapshot into the store, best-effort.
func (s *Service) persistState(ctx context.Context, ls *liveSession, words []track.Word, cursor int) {
	if s.store == nil {
		return
	}
	state, err := json.Marshal(liveState{Words: words, Cursor: cursor})
	if err != nil {
		observe.Logger(ctx).Warn("failed to serialize tracking state",
			"session_id", ls.id, "err", err)
		return
	}
	err = s.store.PutSession(ctx, sessionstore.Session{
		ID:      ls.id,
		Passage: ls.passage,
		Grade:   ls.grade,
		State:   state,
	})
	if err != nil {
		observe.Logger(ctx).Warn("failed to persist tracking state",
			"session_id", ls.id, "err", err)
	}
}
