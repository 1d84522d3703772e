package text_test

import (
	"testing"

	"github.com/oratio-labs/oratio/internal/text"
)

func TestTokenizeOffsets(t *testing.T) {
	passage := "The quick brown fox, jumps!"
	words := text.Tokenize(passage)

	want := []string{"The", "quick", "brown", "fox", "jumps"}
	if len(words) != len(want) {
		t.Fatalf("Tokenize returned %d words, want %d", len(words), len(want))
	}
	for i, w := range words {
		if w.Text != want[i] {
			t.Errorf("word %d = %q, want %q", i, w.Text, want[i])
		}
		if got := passage[w.Start:w.End]; got != w.Text {
			t.Errorf("offsets of %q recover %q", w.Text, got)
		}
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if words := text.Tokenize(""); words != nil {
		t.Errorf("Tokenize(\"\") = %v, want nil", words)
	}
	if words := text.Tokenize("  ...  "); words != nil {
		t.Errorf("Tokenize(punctuation only) = %v, want nil", words)
	}
}

func TestFieldsLowersAndSplits(t *testing.T) {
	got := text.Fields("The QUICK, brown fox.")
	want := []string{"the", "quick", "brown", "fox"}
	if len(got) != len(want) {
		t.Fatalf("Fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"", 0},
		{"the", 1},
		{"see", 1},
		{"cat", 1},
		{"make", 1},
		{"reading", 2},
		{"banana", 3},
		{"assessment", 3},
		{"rhythm", 1},
		{"Fluency,", 2},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			if got := text.Syllables(tt.word); got != tt.want {
				t.Errorf("Syllables(%q) = %d, want %d", tt.word, got, tt.want)
			}
		})
	}
}
