// Package score derives fluency and accuracy metrics from alignment results
// and timing data: words per minute, accuracy percentage, fluency level, and
// reading-level classification against grade benchmarks. All scoring here is
// pure computation; percentages are clamped to [0, 100] and divisions guard
// the zero case.
package score

import (
	"math"
	"time"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/norms"
	"github.com/oratio-labs/oratio/internal/similarity"
	"github.com/oratio-labs/oratio/internal/text"
)

// WPM status labels relative to the grade benchmark.
const (
	WPMAtGradeLevel    = "At Grade Level"
	WPMBelowGradeLevel = "Below Grade Level"
)

// Fluency level tiers.
const (
	LevelIndependent   = "Independent"
	LevelInstructional = "Instructional"
	LevelFrustration   = "Frustration"
)

// Reading level tiers.
const (
	ReadingAboveGrade       = "Above Grade Level"
	ReadingAtGrade          = "At Grade Level"
	ReadingApproachingGrade = "Approaching Grade Level"
	ReadingBelowGrade       = "Below Grade Level"
)

// fillerWords are discarded from the spoken side before accuracy matching.
var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "er": {}, "like": {},
}

// FluencyMetrics is the scorer's summary of one reading.
type FluencyMetrics struct {
	WordsPerMinute     float64 `json:"words_per_minute"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
	BenchmarkWPM       float64 `json:"benchmark_wpm"`
	WPMStatus          string  `json:"wpm_status"`
	FluencyLevel       string  `json:"fluency_level"`
	FluencyScore       float64 `json:"fluency_score"`
}

// WordsPerMinute computes the reading rate from the spoken word count and
// recording duration, rounded to one decimal. When no duration is known the
// grade-typical estimate is returned instead.
func WordsPerMinute(spokenCount int, duration time.Duration, grade int) float64 {
	if duration <= 0 {
		return norms.EstimateWPM(grade)
	}
	minutes := duration.Seconds() / 60
	return math.Round(float64(spokenCount)/minutes*10) / 10
}

// Accuracy computes the word-level accuracy percentage of spokenText against
// originalText by greedy order-independent matching: each original word
// consumes the best-scoring unmatched spoken word above the 0.7 boundary.
// Filler words are discarded from the spoken side first. The result is in
// [0, 100]; an empty original text scores 0.
func Accuracy(originalText, spokenText string) float64 {
	original := text.Fields(originalText)
	if len(original) == 0 {
		return 0
	}
	spoken := text.Fields(spokenText)
	filtered := spoken[:0:0]
	for _, w := range spoken {
		if _, filler := fillerWords[w]; !filler {
			filtered = append(filtered, w)
		}
	}

	matched := 0
	for _, j := range align.GreedyMatches(original, filtered, similarity.ThresholdMispronounced) {
		if j >= 0 {
			matched++
		}
	}
	return clampPercent(math.Round(float64(matched) / float64(len(original)) * 100))
}

// FluencyLevel classifies a reading into Independent, Instructional, or
// Frustration from its accuracy and rate, and returns the level's score.
func FluencyLevel(accuracy, wpm, benchmark float64) (level string, score float64) {
	switch {
	case accuracy >= 95 && wpm >= benchmark*0.9:
		return LevelIndependent, math.Min(100, accuracy+5)
	case accuracy >= 90 && wpm >= benchmark*0.7:
		return LevelInstructional, math.Min(95, accuracy)
	default:
		return LevelFrustration, clampPercent(math.Min(85, accuracy-5))
	}
}

// Fluency assembles the full [FluencyMetrics] for a reading.
func Fluency(originalText, spokenText string, grade int, duration time.Duration) FluencyMetrics {
	wpm := WordsPerMinute(len(text.Fields(spokenText)), duration, grade)
	accuracy := Accuracy(originalText, spokenText)
	benchmark := norms.BenchmarkWPM(grade)

	level, levelScore := FluencyLevel(accuracy, wpm, benchmark)
	status := WPMBelowGradeLevel
	if wpm >= benchmark*0.9 {
		status = WPMAtGradeLevel
	}

	return FluencyMetrics{
		WordsPerMinute:     wpm,
		AccuracyPercentage: accuracy,
		BenchmarkWPM:       benchmark,
		WPMStatus:          status,
		FluencyLevel:       level,
		FluencyScore:       levelScore,
	}
}

// ReadingLevel classifies accuracy and rate into the four grade-relative
// tiers and returns the tier plus the grade equivalent (the learner's grade
// adjusted by the tier offset, floored at grade 1).
func ReadingLevel(accuracy, wpm, benchmark float64, grade int) (level string, gradeEquivalent float64) {
	g := float64(norms.ClampGrade(grade))
	switch {
	case accuracy >= 95 && wpm >= benchmark:
		return ReadingAboveGrade, g + 1
	case accuracy >= 90 && wpm >= benchmark*0.8:
		return ReadingAtGrade, g
	case accuracy >= 80 && wpm >= benchmark*0.7:
		return ReadingApproachingGrade, g - 0.5
	default:
		return ReadingBelowGrade, math.Max(1, g-1)
	}
}

// ReadingScore combines accuracy, comprehension, and rate into the reading
// component of the combined literacy score.
func ReadingScore(accuracy, comprehension, wpm, benchmark float64) float64 {
	if benchmark <= 0 {
		benchmark = 1
	}
	return accuracy*0.5 + comprehension*0.3 + (wpm/benchmark*100)*0.2
}

// CombinedLiteracy blends the reading score with an external grammar score,
// weighted 70/30.
func CombinedLiteracy(readingScore, grammarScore float64) float64 {
	return readingScore*0.7 + grammarScore*0.3
}

// clampPercent clamps v to [0, 100].
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
