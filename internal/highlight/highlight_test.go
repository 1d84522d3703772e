package highlight_test

import (
	"strings"
	"testing"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/highlight"
	"github.com/oratio-labs/oratio/internal/text"
	"github.com/oratio-labs/oratio/internal/track"
)

func concat(segs []highlight.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestRenderReproducesOriginal(t *testing.T) {
	original := "The quick, brown fox! It jumps."
	spans := []highlight.Span{
		{Word: "the", Category: highlight.CategoryGood},
		{Word: "quick", Category: highlight.CategoryGood},
		{Word: "brown", Category: highlight.CategoryMissing, Detail: "Skipped"},
		{Word: "fox", Category: highlight.CategoryMedium, Detail: "Said as: focks"},
		{Word: "it", Category: highlight.CategoryGood},
		{Word: "jumps", Category: highlight.CategoryBad, Detail: "Replaced with: hops"},
	}

	segs := highlight.Render(original, spans)
	if got := concat(segs); got != original {
		t.Fatalf("concatenation = %q, want original %q", got, original)
	}

	var words []highlight.Segment
	for _, s := range segs {
		if s.IsWord() {
			words = append(words, s)
		}
	}
	if len(words) != 6 {
		t.Fatalf("got %d word segments, want 6", len(words))
	}
	// Casing and punctuation stay with the original text, not the span.
	if words[0].Text != "The" {
		t.Errorf("first word = %q, want original casing \"The\"", words[0].Text)
	}
	if words[3].Detail != "Said as: focks" {
		t.Errorf("detail = %q", words[3].Detail)
	}
}

func TestRenderForwardOnlyForRepeatedWords(t *testing.T) {
	original := "the cat and the dog"
	spans := []highlight.Span{
		{Word: "the", Category: highlight.CategoryGood},
		{Word: "cat", Category: highlight.CategoryGood},
		{Word: "and", Category: highlight.CategoryGood},
		{Word: "the", Category: highlight.CategoryBad},
		{Word: "dog", Category: highlight.CategoryGood},
	}

	segs := highlight.Render(original, spans)
	var theSegs []highlight.Segment
	for _, s := range segs {
		if s.IsWord() && s.Text == "the" {
			theSegs = append(theSegs, s)
		}
	}
	if len(theSegs) != 2 {
		t.Fatalf("got %d occurrences of \"the\", want 2", len(theSegs))
	}
	if theSegs[0].Category != highlight.CategoryGood || theSegs[1].Category != highlight.CategoryBad {
		t.Errorf("repeated word categories = %q, %q; second occurrence must take the second span",
			theSegs[0].Category, theSegs[1].Category)
	}
}

func TestRenderWordBoundary(t *testing.T) {
	// "cat" must not match inside "catalog".
	original := "catalog cat"
	spans := []highlight.Span{{Word: "cat", Category: highlight.CategoryGood}}

	segs := highlight.Render(original, spans)
	if got := concat(segs); got != original {
		t.Fatalf("concatenation = %q, want %q", got, original)
	}
	for _, s := range segs {
		if s.IsWord() && s.Index == 0 {
			if s.Text != "cat" {
				t.Errorf("matched %q, want the standalone \"cat\"", s.Text)
			}
			return
		}
	}
	t.Fatal("word segment not found")
}

func TestRenderUnlocatableWordContinues(t *testing.T) {
	original := "one two three"
	spans := []highlight.Span{
		{Word: "one", Category: highlight.CategoryGood},
		{Word: "zebra", Category: highlight.CategoryBad},
		{Word: "two", Category: highlight.CategoryGood},
		{Word: "three", Category: highlight.CategoryGood},
	}

	segs := highlight.Render(original, spans)
	var zebra *highlight.Segment
	located := 0
	for i, s := range segs {
		if !s.IsWord() {
			continue
		}
		if s.Index == 1 {
			zebra = &segs[i]
			continue
		}
		located++
	}
	if zebra == nil {
		t.Fatal("unlocatable word was dropped entirely")
	}
	if zebra.Category != "" {
		t.Errorf("unlocatable word category = %q, want uncategorized", zebra.Category)
	}
	if located != 3 {
		t.Errorf("located %d words after the miss, want 3; rendering must continue", located)
	}
}

func TestRenderNonASCIIOffsets(t *testing.T) {
	// İ lowers to a longer byte sequence under full Unicode folding, which
	// would shift every offset after it. Spans must still slice the
	// original exactly.
	original := "Visit İstanbul, the old city."
	spans := []highlight.Span{
		{Word: "Visit", Category: highlight.CategoryGood},
		{Word: "İstanbul", Category: highlight.CategoryGood},
		{Word: "the", Category: highlight.CategoryGood},
		{Word: "old", Category: highlight.CategoryMedium, Detail: "Said as: olde"},
		{Word: "city", Category: highlight.CategoryGood},
	}

	segs := highlight.Render(original, spans)
	if got := concat(segs); got != original {
		t.Fatalf("concatenation = %q, want original %q", got, original)
	}
	for _, s := range segs {
		if s.Index == 1 && s.Text != "İstanbul" {
			t.Errorf("segment text = %q, want %q", s.Text, "İstanbul")
		}
		if s.Index == 3 && s.Text != "old" {
			t.Errorf("word after the non-ASCII word = %q, want %q", s.Text, "old")
		}
	}
}

func TestRenderEmptyInputs(t *testing.T) {
	if segs := highlight.Render("", nil); len(segs) != 0 {
		t.Errorf("empty everything: got %d segments, want 0", len(segs))
	}
	segs := highlight.Render("just some text", nil)
	if len(segs) != 1 || segs[0].Text != "just some text" || segs[0].IsWord() {
		t.Errorf("no spans: got %+v, want the passage as one text run", segs)
	}
}

func TestFromResultCategories(t *testing.T) {
	original := "The quick brown fox jumps"
	spoken := []align.SpokenWord{
		{Text: "the", Confidence: 0.98},
		{Text: "quik", Confidence: 0.7},
		{Text: "fox", Confidence: 0.95},
		{Text: "hops", Confidence: 0.9},
	}
	res := align.Align(text.Fields(original), spoken)

	segs := highlight.FromResult(original, res)
	if got := concat(segs); got != original {
		t.Fatalf("concatenation = %q, want %q", got, original)
	}

	want := map[int]highlight.Category{
		0: highlight.CategoryGood,    // the
		1: highlight.CategoryMedium,  // quick ~ quik
		2: highlight.CategoryMissing, // brown skipped
		3: highlight.CategoryGood,    // fox
		4: highlight.CategoryBad,     // jumps -> hops
	}
	for _, s := range segs {
		if !s.IsWord() {
			continue
		}
		if s.Category != want[s.Index] {
			t.Errorf("word %d (%q): category = %q, want %q", s.Index, s.Text, s.Category, want[s.Index])
		}
	}
}

func TestFromTrackedCategories(t *testing.T) {
	original := "red green blue"
	tr := track.New(text.Tokenize(original))
	if _, _, err := tr.Consume([]string{"red", "grean"}); err != nil {
		t.Fatal(err)
	}

	segs := highlight.FromTracked(original, tr.Words())
	byIndex := map[int]highlight.Segment{}
	for _, s := range segs {
		if s.IsWord() {
			byIndex[s.Index] = s
		}
	}
	if byIndex[0].Category != highlight.CategoryGood {
		t.Errorf("word 0 category = %q, want good", byIndex[0].Category)
	}
	// "grean" against "green" sits exactly at the live threshold, which is
	// exclusive, so the word reads as incorrect.
	if byIndex[1].Category != highlight.CategoryBad {
		t.Errorf("word 1 category = %q, want bad", byIndex[1].Category)
	}
	if byIndex[2].Category != highlight.CategoryCurrent {
		t.Errorf("pending word category = %q, want current", byIndex[2].Category)
	}
	if got := concat(segs); got != original {
		t.Fatalf("concatenation = %q, want %q", got, original)
	}
}
