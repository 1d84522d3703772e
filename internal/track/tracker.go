// Package track maintains the live state of a reading session: an ordered
// list of reference words whose statuses are updated as recognised speech
// arrives chunk by chunk, plus a cursor marking the next unconsumed word.
//
// A [Tracker] is the shared mutable resource of a session. All methods are
// safe for concurrent use, with at-most-one-writer semantics enforced by an
// internal mutex: two requests for the same session serialise here.
package track

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/similarity"
	"github.com/oratio-labs/oratio/internal/text"
)

// ErrFinalized is returned by mutating calls after [Tracker.Finalize].
var ErrFinalized = errors.New("track: session already finalized")

// Status is the live classification of one tracked word. The vocabulary is
// coarser than the batch aligner's: live tracking only needs to know whether
// a word was read acceptably, not why it differed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCurrent   Status = "current"
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusSkipped   Status = "skipped"
)

// Word is one reference word with its mutable live status.
type Word struct {
	text.Word
	Status Status `json:"status"`
}

// Update reports one status change produced by [Tracker.Consume].
type Update struct {
	Index  int    `json:"index"`
	Status Status `json:"status"`
}

// Stats aggregates the final word statuses of a session.
type Stats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// Tracker holds the live tracking state for one passage.
type Tracker struct {
	mu        sync.Mutex
	words     []Word
	cursor    int
	finalized bool
}

// New prepares a tracker for the given passage words. Every word starts
// pending and the cursor sits at the first word.
func New(words []text.Word) *Tracker {
	tw := make([]Word, len(words))
	for i, w := range words {
		tw[i] = Word{Word: w, Status: StatusPending}
	}
	return &Tracker{words: tw}
}

// Consume feeds a chunk of newly recognised spoken words into the tracker.
//
// The remaining window of words (cursor to end) is aligned against the
// chunk; every aligned word is classified correct when its similarity to the
// corresponding chunk word exceeds 0.8, incorrect otherwise. When the
// updated indices span a wider range than their count, the still-pending
// words inside the gap are marked skipped. The cursor advances past the
// highest updated index.
//
// An empty chunk, or a cursor already past the last word, is a no-op.
// Chunk-boundary placement can shift individual classifications when the
// reader skipped words; splitting the same speech differently is only
// guaranteed to agree on gap-free readings.
//
// The returned updates list every status change in index order, followed by
// the new cursor position.
func (t *Tracker) Consume(chunk []string) ([]Update, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return nil, t.cursor, ErrFinalized
	}
	if len(chunk) == 0 || t.cursor >= len(t.words) {
		return nil, t.cursor, nil
	}

	window := make([]string, 0, len(t.words)-t.cursor)
	for _, w := range t.words[t.cursor:] {
		window = append(window, w.Lower())
	}
	lowered := make([]string, len(chunk))
	for i, c := range chunk {
		lowered[i] = strings.ToLower(c)
	}

	var updates []Update
	minIdx, maxIdx := len(t.words), -1
	apply := func(abs int, st Status) {
		t.words[abs].Status = st
		updates = append(updates, Update{Index: abs, Status: st})
		if abs < minIdx {
			minIdx = abs
		}
		if abs > maxIdx {
			maxIdx = abs
		}
	}

	for _, op := range align.Opcodes(window, lowered) {
		switch op.Tag {
		case align.OpEqual:
			for k := 0; k < op.I2-op.I1; k++ {
				apply(t.cursor+op.I1+k, StatusCorrect)
			}
		case align.OpReplace:
			// Pair element-wise up to the shorter side; unpaired window
			// words stay pending and fall to the gap logic below.
			n := op.I2 - op.I1
			if m := op.J2 - op.J1; m < n {
				n = m
			}
			for k := 0; k < n; k++ {
				abs := t.cursor + op.I1 + k
				st := StatusIncorrect
				if similarity.Ratio(window[op.I1+k], lowered[op.J1+k]) > similarity.ThresholdLiveCorrect {
					st = StatusCorrect
				}
				apply(abs, st)
			}
		}
	}

	if len(updates) == 0 {
		return nil, t.cursor, nil
	}

	// Gap fill: a span wider than the number of updates means words inside
	// it were jumped over.
	if maxIdx-minIdx+1 > len(updates) {
		for idx := minIdx; idx <= maxIdx; idx++ {
			if t.words[idx].Status == StatusPending {
				apply(idx, StatusSkipped)
			}
		}
	}

	t.cursor = maxIdx + 1
	slices.SortFunc(updates, func(a, b Update) int { return a.Index - b.Index })
	return updates, t.cursor, nil
}

// SetStatus overrides the status of a single word, for caller-driven marks
// such as highlighting the word currently being spoken.
func (t *Tracker) SetStatus(index int, st Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return ErrFinalized
	}
	if index < 0 || index >= len(t.words) {
		return errors.New("track: word index out of range")
	}
	t.words[index].Status = st
	return nil
}

// Finalize closes the session: every word still pending (or left marked
// current) becomes skipped. It returns the full word list and the aggregate
// counts. Further Consume or SetStatus calls return [ErrFinalized];
// Finalize itself is idempotent.
func (t *Tracker) Finalize() ([]Word, Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.finalized {
		for i := range t.words {
			if t.words[i].Status == StatusPending || t.words[i].Status == StatusCurrent {
				t.words[i].Status = StatusSkipped
			}
		}
		t.finalized = true
	}

	stats := Stats{Total: len(t.words)}
	for _, w := range t.words {
		switch w.Status {
		case StatusCorrect:
			stats.Correct++
		case StatusIncorrect:
			stats.Incorrect++
		case StatusSkipped:
			stats.Skipped++
		}
	}
	return t.snapshotLocked(), stats, nil
}

// Words returns a snapshot of the tracked words.
func (t *Tracker) Words() []Word {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Cursor returns the index of the next unconsumed reference word.
func (t *Tracker) Cursor() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// Finalized reports whether [Tracker.Finalize] has been called.
func (t *Tracker) Finalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalized
}

func (t *Tracker) snapshotLocked() []Word {
	out := make([]Word, len(t.words))
	copy(out, t.words)
	return out
}
