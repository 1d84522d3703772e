package similarity

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// PhoneticScore holds the phonetic comparison of a reference word against
// what was actually said. It is diagnostic metadata attached to near-miss
// classifications — a mispronunciation that is phonetically identical to the
// target (their/there, red/read) is usually a decoding success rather than a
// decoding failure, and reports should be able to say so.
type PhoneticScore struct {
	// Alike is true when the two words share a Double Metaphone code.
	Alike bool

	// JaroWinkler is the Jaro-Winkler similarity of the two words,
	// case-insensitive. It weighs shared prefixes more heavily than [Ratio]
	// and is reported alongside it, never in place of it.
	JaroWinkler float64
}

// Phonetic compares two words phonetically. Classification thresholds are
// unaffected by this score; see [PhoneticScore].
func Phonetic(a, b string) PhoneticScore {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return PhoneticScore{}
	}

	p1, s1 := matchr.DoubleMetaphone(la)
	p2, s2 := matchr.DoubleMetaphone(lb)

	return PhoneticScore{
		Alike:       codesOverlap(p1, s1, p2, s2),
		JaroWinkler: matchr.JaroWinkler(la, lb, false),
	}
}

// codesOverlap reports whether any non-empty code from the first pair equals
// any non-empty code from the second.
func codesOverlap(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || (s2 != "" && a == s2) {
			return true
		}
	}
	return false
}
