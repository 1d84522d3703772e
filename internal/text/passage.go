// Package text tokenises a reference passage into words with their byte
// offsets. The resulting [Word] sequence is the immutable backbone of every
// alignment, tracking, and highlighting operation: word order and offsets
// never change for the lifetime of a session.
package text

import (
	"regexp"
	"strings"
)

// wordPattern matches a run of word characters. Offsets reported by the
// tokenizer are byte offsets into the original passage string.
var wordPattern = regexp.MustCompile(`\b\w+\b`)

// Word is one token of a reference passage.
type Word struct {
	// Text is the word exactly as it appears in the passage, casing preserved.
	Text string

	// Start and End are the byte offsets of the word in the passage,
	// such that passage[Start:End] == Text.
	Start int
	End   int

	// Syllables is the estimated syllable count, computed at tokenisation.
	Syllables int
}

// Lower returns the word lower-cased for comparison.
func (w Word) Lower() string {
	return strings.ToLower(w.Text)
}

// Tokenize splits passage into its ordered [Word] sequence. Punctuation and
// whitespace between words are not represented; they are recovered by the
// highlight renderer from the byte offsets. An empty or word-free passage
// yields a nil slice.
func Tokenize(passage string) []Word {
	idx := wordPattern.FindAllStringIndex(passage, -1)
	if len(idx) == 0 {
		return nil
	}
	words := make([]Word, 0, len(idx))
	for _, span := range idx {
		t := passage[span[0]:span[1]]
		words = append(words, Word{
			Text:      t,
			Start:     span[0],
			End:       span[1],
			Syllables: Syllables(t),
		})
	}
	return words
}

// LowerTexts returns the lower-cased text of each word in words, in order.
// This is the comparison-side view used by the aligner.
func LowerTexts(words []Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Lower()
	}
	return out
}

// Fields splits free-form transcript text into lower-cased word tokens using
// the same word-boundary rules as [Tokenize], so reference and spoken sides
// tokenise identically.
func Fields(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}
