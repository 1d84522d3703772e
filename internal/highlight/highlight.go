// Package highlight maps per-word classifications back onto the original
// passage text, producing an ordered segment list a presentation layer can
// serialize however it likes. The package never emits markup itself.
package highlight

import (
	"strings"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/text"
	"github.com/oratio-labs/oratio/internal/track"
)

// Category is the display class of a highlighted word.
type Category string

const (
	CategoryGood    Category = "good"
	CategoryMedium  Category = "medium"
	CategoryBad     Category = "bad"
	CategoryMissing Category = "missing"
	CategoryCurrent Category = "current"
)

// Segment is one piece of the rendered passage. Concatenating the Text of
// every segment reproduces the original passage (modulo words that could
// not be located, which are emitted uncategorized in place). Index is the
// reference word index for word segments and -1 for plain text runs.
type Segment struct {
	Text     string   `json:"text"`
	Index    int      `json:"index"`
	Category Category `json:"category,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// IsWord reports whether the segment wraps a classified reference word
// rather than a plain text run.
func (s Segment) IsWord() bool { return s.Index >= 0 }

// Span is one reference word with its classification, the input unit of
// [Render].
type Span struct {
	Word     string
	Category Category
	Detail   string
}

// Render locates each span's word in the original passage by scanning
// forward from the previous word's end, preserving the passage's casing and
// punctuation in the output. A word that cannot be found from the current
// scan position is emitted uncategorized without advancing the scan;
// rendering never aborts.
func Render(original string, spans []Span) []Segment {
	lower := foldASCII(original)
	segs := make([]Segment, 0, 2*len(spans)+1)
	pos := 0

	for i, sp := range spans {
		w := foldASCII(sp.Word)
		if w == "" {
			continue
		}
		start := indexWord(lower, w, pos)
		if start < 0 {
			segs = append(segs, Segment{Text: sp.Word, Index: i})
			continue
		}
		if start > pos {
			segs = append(segs, Segment{Text: original[pos:start], Index: -1})
		}
		end := start + len(w)
		segs = append(segs, Segment{
			Text:     original[start:end],
			Index:    i,
			Category: sp.Category,
			Detail:   sp.Detail,
		})
		pos = end
	}

	if pos < len(original) {
		segs = append(segs, Segment{Text: original[pos:], Index: -1})
	}
	return segs
}

// FromResult renders a batch alignment over the original passage. The
// result's marks are assumed to classify the passage's own word sequence,
// mark i for word i.
func FromResult(original string, res align.Result) []Segment {
	words := text.Fields(original)
	n := min(len(words), len(res.Marks))

	spans := make([]Span, n)
	for i := 0; i < n; i++ {
		cat, detail := markSpan(res.Marks[i])
		spans[i] = Span{Word: words[i], Category: cat, Detail: detail}
	}
	return Render(original, spans)
}

// FromTracked renders a live tracking snapshot over the original passage.
// Pending words carry the current-position category so a reader display can
// show where the reading stands.
func FromTracked(original string, words []track.Word) []Segment {
	spans := make([]Span, len(words))
	for i, w := range words {
		spans[i] = Span{Word: w.Text, Category: trackCategory(w.Status)}
	}
	return Render(original, spans)
}

func markSpan(m align.Mark) (Category, string) {
	switch m := m.(type) {
	case align.Correct:
		return CategoryGood, ""
	case align.Mispronounced:
		return CategoryMedium, "Said as: " + m.Actual
	case align.Substituted:
		return CategoryBad, "Replaced with: " + m.Actual
	default:
		return CategoryMissing, "Skipped"
	}
}

func trackCategory(st track.Status) Category {
	switch st {
	case track.StatusCorrect:
		return CategoryGood
	case track.StatusIncorrect:
		return CategoryBad
	case track.StatusSkipped:
		return CategoryMissing
	default: // pending or current
		return CategoryCurrent
	}
}

// indexWord finds word in lower at or after from, at a word boundary on
// both sides. Returns -1 when no such occurrence exists.
func indexWord(lower, word string, from int) int {
	for from+len(word) <= len(lower) {
		idx := strings.Index(lower[from:], word)
		if idx < 0 {
			return -1
		}
		start := from + idx
		end := start + len(word)
		if (start == 0 || !isWordByte(lower[start-1])) && (end == len(lower) || !isWordByte(lower[end])) {
			return start
		}
		from = start + 1
	}
	return -1
}

// foldASCII lowers A-Z only. Full Unicode lowering can change byte lengths
// (İ, K), which would desynchronize offsets between the folded copy and the
// original passage; ASCII folding keeps them byte-for-byte aligned.
func foldASCII(s string) string {
	b := []byte(s)
	folded := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			folded = true
		}
	}
	if !folded {
		return s
	}
	return string(b)
}

func isWordByte(b byte) bool {
	return b == '_' ||
		b >= '0' && b <= '9' ||
		b >= 'a' && b <= 'z' ||
		b >= 'A' && b <= 'Z' ||
		b >= 0x80
}
