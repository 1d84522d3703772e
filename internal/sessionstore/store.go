// Package sessionstore defines persistence for reading-assessment sessions:
// the passage under assessment, the live tracking state, and the result
// records produced when a reading is scored.
//
// Two implementations exist: [MemStore] for single-process deployments and
// tests, and the PostgreSQL-backed store in the postgres subpackage. All
// implementations must be safe for concurrent use.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Session is one reading-assessment session. State carries the live
// tracker's snapshot as an opaque JSON blob; the store never interprets it.
type Session struct {
	// ID is the unique session identifier (a UUID).
	ID string `json:"id"`

	// Passage is the reference text being read.
	Passage string `json:"passage"`

	// Grade is the reader's grade level, clamped to the supported range by
	// the caller.
	Grade int `json:"grade"`

	// State is the serialized tracking state. Empty until the first live
	// update arrives.
	State json.RawMessage `json:"state,omitempty"`

	// CreatedAt is when the session was first stored.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the session was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is one scored outcome attached to a session: a fluency summary, a
// comprehensive report, or a finalized live-tracking summary. Payload is the
// serialized result; Kind names its shape.
type Result struct {
	SessionID  string          `json:"session_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Result kinds written by the assessment service.
const (
	KindAssessment  = "assessment"
	KindReport      = "report"
	KindLiveSummary = "live_summary"
)

// listOptions accumulates options for [Store.ListSessions].
// Unexported — callers configure it via [ListOpt] functional options.
type listOptions struct {
	grade        int
	createdAfter time.Time
	limit        int
}

// ListOpt is a functional option for [Store.ListSessions].
type ListOpt func(*listOptions)

// WithGrade restricts the listing to sessions at the given grade level.
func WithGrade(grade int) ListOpt {
	return func(o *listOptions) { o.grade = grade }
}

// WithCreatedAfter restricts the listing to sessions created after t
// (exclusive).
func WithCreatedAfter(t time.Time) ListOpt {
	return func(o *listOptions) { o.createdAfter = t }
}

// WithLimit caps the number of sessions returned.
// A value of 0 means the implementation may apply its own default.
func WithLimit(n int) ListOpt {
	return func(o *listOptions) { o.limit = n }
}

// ListParams holds the resolved parameters from a slice of [ListOpt].
type ListParams struct {
	Grade        int
	CreatedAfter time.Time
	Limit        int
}

// ApplyListOpts applies a slice of [ListOpt] functional options and returns
// the resolved parameters. This helper lets storage backends in other
// packages read the option values without access to the unexported
// [listOptions] type.
func ApplyListOpts(opts []ListOpt) ListParams {
	o := &listOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return ListParams{
		Grade:        o.grade,
		CreatedAfter: o.createdAfter,
		Limit:        o.limit,
	}
}

// AppendJSON marshals payload and appends it to sessionID as a [Result] of
// the given kind.
func AppendJSON(ctx context.Context, s Store, sessionID, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal %s payload: %w", kind, err)
	}
	return s.AppendResult(ctx, Result{
		SessionID: sessionID,
		Kind:      kind,
		Payload:   data,
	})
}

// Store persists reading-assessment sessions and their results.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// PutSession upserts a session. A session with the same ID is completely
	// replaced except for CreatedAt, which keeps its original value; the
	// implementation sets UpdatedAt.
	PutSession(ctx context.Context, s Session) error

	// GetSession retrieves a session by ID.
	// Returns (nil, nil) when the session does not exist.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session and all its results. Deleting a
	// non-existent session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns sessions ordered by CreatedAt descending (newest
	// first), filtered by opts.
	// Returns an empty (non-nil) slice when no sessions match.
	ListSessions(ctx context.Context, opts ...ListOpt) ([]Session, error)

	// AppendResult records a scored outcome for r.SessionID. The
	// implementation sets RecordedAt when zero.
	AppendResult(ctx context.Context, r Result) error

	// Results returns the results for sessionID in chronological order
	// (oldest first). limit caps the count; 0 means no cap.
	// Returns an empty (non-nil) slice when the session has no results.
	Results(ctx context.Context, sessionID string, limit int) ([]Result, error)
}
