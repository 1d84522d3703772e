package align

import "github.com/oratio-labs/oratio/internal/similarity"

// Category is the coarse match grade used by the bare text-comparison path,
// where no word-level transcription detail exists.
type Category string

const (
	CategoryGood    Category = "good"
	CategoryMedium  Category = "medium"
	CategoryBad     Category = "bad"
	CategoryMissing Category = "missing"
)

// GreedyMatches matches reference words against spoken words greedily and
// order-independently: for each reference word, in order, the unconsumed
// spoken word with the highest similarity strictly above threshold is
// consumed. The result maps each reference index to the matched spoken index,
// or -1 when nothing cleared the threshold.
func GreedyMatches(ref, spoken []string, threshold float64) []int {
	matches := make([]int, len(ref))
	consumed := make([]bool, len(spoken))
	for i, rw := range ref {
		bestIdx := -1
		bestScore := threshold
		for j, sw := range spoken {
			if consumed[j] {
				continue
			}
			if sim := similarity.Ratio(rw, sw); sim > bestScore {
				bestScore = sim
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			consumed[bestIdx] = true
		}
		matches[i] = bestIdx
	}
	return matches
}

// GreedyCategories grades each reference word against the spoken sequence
// using greedy matching at the bare-text boundary (0.5): good above 0.9,
// medium above 0.7, bad otherwise, missing when no spoken word cleared the
// boundary.
func GreedyCategories(ref, spoken []string) []Category {
	cats := make([]Category, len(ref))
	matches := GreedyMatches(ref, spoken, similarity.ThresholdMatch)
	for i, j := range matches {
		if j < 0 {
			cats[i] = CategoryMissing
			continue
		}
		switch sim := similarity.Ratio(ref[i], spoken[j]); {
		case sim > similarity.ThresholdGood:
			cats[i] = CategoryGood
		case sim > similarity.ThresholdMispronounced:
			cats[i] = CategoryMedium
		default:
			cats[i] = CategoryBad
		}
	}
	return cats
}
