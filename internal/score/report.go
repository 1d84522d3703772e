package score

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/grammar"
	"github.com/oratio-labs/oratio/internal/norms"
	"github.com/oratio-labs/oratio/internal/similarity"
	"github.com/oratio-labs/oratio/internal/text"
)

// Summary is the basic analysis of a reading: fluency metrics plus an
// overall rating and coaching strings.
type Summary struct {
	OverallRating  float64        `json:"overall_rating"`
	FluencyScore   float64        `json:"fluency_score"`
	AccuracyScore  float64        `json:"accuracy_score"`
	Metrics        FluencyMetrics `json:"fluency_metrics"`
	Strengths      []string       `json:"strengths"`
	AreasToImprove []string       `json:"areas_to_improve"`
}

// Report is the comprehensive analysis of a reading, optionally blended
// with an external grammar evaluation.
type Report struct {
	ReadingLevel          string         `json:"reading_level"`
	GradeEquivalent       float64        `json:"grade_equivalent"`
	WordStats             align.Stats    `json:"word_statistics"`
	AccuracyPercentage    float64        `json:"accuracy_percentage"`
	Metrics               FluencyMetrics `json:"fluency_metrics"`
	ComprehensionEstimate float64        `json:"comprehension_estimate"`
	ProsodyScore          float64        `json:"prosody_score"`
	Strengths             []string       `json:"strengths"`
	AreasToImprove        []string       `json:"areas_to_improve"`
	NextSteps             []string       `json:"next_steps"`

	// Set only when a grammar evaluation was supplied.
	GrammarScore          *float64 `json:"grammar_score,omitempty"`
	GrammarProficiency    string   `json:"grammar_proficiency,omitempty"`
	CombinedLiteracyScore *float64 `json:"combined_literacy_score,omitempty"`
}

// Analyze produces the basic reading [Summary]: fluency metrics and an
// overall rating that weighs fluency and accuracy equally.
func Analyze(originalText, spokenText string, grade int, duration time.Duration) Summary {
	m := Fluency(originalText, spokenText, grade, duration)

	s := Summary{
		OverallRating: math.Round(m.FluencyScore*0.5 + m.AccuracyPercentage*0.5),
		FluencyScore:  math.Round(m.FluencyScore),
		AccuracyScore: math.Round(m.AccuracyPercentage),
		Metrics:       m,
	}
	if m.FluencyScore >= 85 {
		s.Strengths = append(s.Strengths, fmt.Sprintf("Strong reading fluency (%.0f/100)", m.FluencyScore))
	}
	if m.AccuracyPercentage >= 90 {
		s.Strengths = append(s.Strengths, fmt.Sprintf("High reading accuracy (%.0f%%)", m.AccuracyPercentage))
	}
	if m.FluencyScore < 75 {
		s.AreasToImprove = append(s.AreasToImprove, fmt.Sprintf("Work on reading fluency (currently %.0f/100)", m.FluencyScore))
	}
	if m.AccuracyPercentage < 85 {
		s.AreasToImprove = append(s.AreasToImprove, fmt.Sprintf("Improve reading accuracy (currently %.0f%%)", m.AccuracyPercentage))
	}
	return s
}

// Comprehensive produces the full [Report] for a reading. words carries the
// per-word transcription detail when the provider supplied it; when absent,
// word statistics are estimated from whole-text similarity (the degraded
// path) instead of a word alignment.
func Comprehensive(
	originalText, spokenText string,
	words []align.SpokenWord,
	duration time.Duration,
	grade int,
	eval *grammar.Evaluation,
) Report {
	metrics := Fluency(originalText, spokenText, grade, duration)
	benchmark := norms.BenchmarkWPM(grade)

	// Whole-text similarity drives the comprehensive accuracy figure and
	// the prosody estimate. Case never counts against the reader.
	sim := similarity.Ratio(strings.ToLower(originalText), strings.ToLower(spokenText))
	accuracy := clampPercent(sim * 100)

	var stats align.Stats
	if len(words) > 0 {
		stats = align.Align(text.Fields(originalText), words).Stats
	} else {
		stats = estimateWordStats(len(text.Fields(originalText)), sim)
	}

	level, gradeEquiv := ReadingLevel(accuracy, metrics.WordsPerMinute, benchmark, grade)
	comprehension := math.Min(100, accuracy*0.6+metrics.WordsPerMinute/benchmark*40)
	prosody := 70 + sim*30

	r := Report{
		ReadingLevel:          level,
		GradeEquivalent:       gradeEquiv,
		WordStats:             stats,
		AccuracyPercentage:    round1(accuracy),
		Metrics:               metrics,
		ComprehensionEstimate: round1(comprehension),
		ProsodyScore:          round1(prosody),
	}

	if sim >= 0.9 {
		r.Strengths = append(r.Strengths, "Strong word recognition")
	}
	if metrics.WordsPerMinute >= benchmark*1.1 {
		r.Strengths = append(r.Strengths, "Excellent reading speed")
	}
	if accuracy >= 90 {
		r.Strengths = append(r.Strengths, "High reading accuracy")
	}
	if sim < 0.8 {
		r.AreasToImprove = append(r.AreasToImprove, "Practice word pronunciation")
	}
	if metrics.WordsPerMinute < benchmark*0.8 {
		r.AreasToImprove = append(r.AreasToImprove, "Work on improving reading speed")
	}
	if accuracy < 85 {
		r.AreasToImprove = append(r.AreasToImprove, "Focus on reading accuracy")
	}

	if eval != nil {
		g := eval.Score
		r.GrammarScore = &g
		r.GrammarProficiency = eval.ProficiencyLevel

		reading := ReadingScore(accuracy, comprehension, metrics.WordsPerMinute, benchmark)
		combined := round1(CombinedLiteracy(reading, g))
		r.CombinedLiteracyScore = &combined

		if len(eval.ConceptsMastered) > 0 {
			r.Strengths = append(r.Strengths,
				"Strong grammar skills in: "+strings.Join(head(eval.ConceptsMastered, 3), ", "))
		}
		if len(eval.ConceptsToImprove) > 0 {
			r.AreasToImprove = append(r.AreasToImprove,
				"Review grammar concepts: "+strings.Join(head(eval.ConceptsToImprove, 2), ", "))
		}
	}

	r.NextSteps = nextSteps(r.AreasToImprove)
	return r
}

// estimateWordStats approximates per-word statistics from whole-text
// similarity when no word-level transcription detail exists.
func estimateWordStats(total int, sim float64) align.Stats {
	correct := int(float64(total) * sim)
	mispronounced := int(float64(total) * 0.1)
	substituted := int(float64(total) * 0.05)
	skipped := total - correct - mispronounced - substituted
	if skipped < 0 {
		skipped = 0
	}
	return align.Stats{
		Correct:       correct,
		Mispronounced: mispronounced,
		Substituted:   substituted,
		Skipped:       skipped,
		Total:         total,
	}
}

// nextSteps derives up to two concrete practice suggestions from the
// improvement areas, with a maintenance default when there are none.
func nextSteps(areas []string) []string {
	var steps []string
	for _, area := range head(areas, 2) {
		lower := strings.ToLower(area)
		switch {
		case strings.Contains(lower, "pronunciation"):
			steps = append(steps, "Practice reading aloud with a focus on challenging words")
		case strings.Contains(lower, "accuracy"):
			steps = append(steps, "Read at a slightly slower pace to ensure all words are read correctly")
		case strings.Contains(lower, "speed"):
			steps = append(steps, "Practice timed reading exercises to build fluency")
		case strings.Contains(lower, "grammar"):
			steps = append(steps, "Complete grammar exercises focused on your improvement areas")
		}
	}
	if len(steps) == 0 {
		steps = append(steps, "Continue practicing with texts at this level to maintain skills")
	}
	return steps
}

func head(xs []string, n int) []string {
	if len(xs) <= n {
		return xs
	}
	return xs[:n]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
