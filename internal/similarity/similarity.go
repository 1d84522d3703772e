// Package similarity is the atomic word-comparison unit of the assessment
// engine. Every classification decision in the aligner, tracker, and scorer
// flows through [Ratio] and the named threshold constants below, so that the
// calibrated boundaries cannot drift between call sites.
package similarity

import "strings"

// Calibrated classification thresholds. These change assessment outcomes at
// the boundary and are deliberately not configurable.
const (
	// ThresholdGood separates a cleanly read word from a mispronunciation in
	// the bare text-comparison path.
	ThresholdGood = 0.9

	// ThresholdLiveCorrect is the correct/incorrect boundary used by the
	// live tracker when classifying a spoken chunk against the passage.
	ThresholdLiveCorrect = 0.8

	// ThresholdMispronounced separates a near-miss (mispronounced) from a
	// wholly different word (substituted), and is the minimum score for a
	// greedy accuracy match.
	ThresholdMispronounced = 0.7

	// ThresholdMatch is the match/no-match boundary when only raw strings
	// are available.
	ThresholdMatch = 0.5
)

// Ratio returns a similarity score in [0, 1] for two words, case-insensitive.
// It is the Ratcliff-Obershelp measure: twice the number of characters in
// the longest matching blocks, divided by the total length of both strings.
// Identical strings (after lowering) score 1.0; strings with no aligned
// characters score 0.0. Ratio is symmetric.
func Ratio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	matched := matchingChars(ra, rb)
	return 2.0 * float64(matched) / float64(total)
}

// matchingChars returns the total number of characters covered by the
// longest matching blocks of a and b, found recursively: locate the longest
// common substring, then repeat on the pieces to its left and right.
func matchingChars(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	n := size
	n += matchingChars(a[:ai], b[:bi])
	n += matchingChars(a[ai+size:], b[bi+size:])
	return n
}

// longestMatch finds the longest common substring of a and b, returning its
// start in a, start in b, and length. Earlier matches in a win ties, then
// earlier matches in b, mirroring the classic sequence-matcher behaviour.
func longestMatch(a, b []rune) (bestA, bestB, bestSize int) {
	// j2len[j] = length of the common suffix ending at a[i-1]/b[j-1].
	j2len := make(map[int]int, len(b))
	for i := range a {
		next := make(map[int]int, len(b))
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		j2len = next
	}
	return bestA, bestB, bestSize
}
