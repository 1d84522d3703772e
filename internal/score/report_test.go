package score_test

import (
	"strings"
	"testing"
	"time"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/grammar"
	"github.com/oratio-labs/oratio/internal/score"
)

const samplePassage = "The quick brown fox jumps over the lazy dog near the quiet river bank today"

func sampleWords(txt string) []align.SpokenWord {
	var out []align.SpokenWord
	for _, w := range strings.Fields(strings.ToLower(txt)) {
		out = append(out, align.SpokenWord{Text: w, Confidence: 0.95})
	}
	return out
}

func TestComprehensivePerfectReading(t *testing.T) {
	r := score.Comprehensive(samplePassage, samplePassage, sampleWords(samplePassage), 6*time.Second, 5, nil)

	if r.AccuracyPercentage != 100 {
		t.Errorf("accuracy = %v, want 100", r.AccuracyPercentage)
	}
	if r.WordStats.Correct != r.WordStats.Total || r.WordStats.Total == 0 {
		t.Errorf("word stats = %+v, want all correct", r.WordStats)
	}
	if r.ReadingLevel != score.ReadingAboveGrade {
		t.Errorf("reading level = %q, want above grade", r.ReadingLevel)
	}
	if r.GradeEquivalent != 6 {
		t.Errorf("grade equivalent = %v, want 6", r.GradeEquivalent)
	}
	if r.ProsodyScore != 100 {
		t.Errorf("prosody = %v, want 100", r.ProsodyScore)
	}
	if r.GrammarScore != nil || r.CombinedLiteracyScore != nil {
		t.Error("grammar fields set without an evaluation")
	}
}

func TestComprehensiveDegradedPathEstimatesStats(t *testing.T) {
	// No word detail: statistics come from whole-text similarity.
	r := score.Comprehensive(samplePassage, samplePassage, nil, 6*time.Second, 5, nil)
	if r.WordStats.Total != 15 {
		t.Errorf("total = %d, want 15", r.WordStats.Total)
	}
	if r.WordStats.Correct != 15 {
		t.Errorf("estimated stats %+v, want all 15 words correct for identical text", r.WordStats)
	}
	if r.WordStats.Skipped < 0 {
		t.Errorf("estimated stats %+v, skipped went negative", r.WordStats)
	}
}

func TestComprehensiveBlendsGrammar(t *testing.T) {
	eval := &grammar.Evaluation{
		Score:             60,
		ProficiencyLevel:  "Developing",
		ConceptsMastered:  []string{"nouns", "verbs", "adjectives", "adverbs"},
		ConceptsToImprove: []string{"tenses", "clauses", "punctuation"},
	}
	r := score.Comprehensive(samplePassage, samplePassage, sampleWords(samplePassage), 6*time.Second, 5, eval)

	if r.GrammarScore == nil || *r.GrammarScore != 60 {
		t.Fatalf("grammar score = %v, want 60", r.GrammarScore)
	}
	if r.CombinedLiteracyScore == nil {
		t.Fatal("combined literacy score missing")
	}
	if *r.CombinedLiteracyScore <= 60 || *r.CombinedLiteracyScore > 100 {
		t.Errorf("combined literacy = %v, want in (60, 100]", *r.CombinedLiteracyScore)
	}
	// Concept lists are truncated to 3 mastered / 2 to improve.
	joined := strings.Join(r.Strengths, "|")
	if strings.Contains(joined, "adverbs") {
		t.Errorf("strengths %v include more than three mastered concepts", r.Strengths)
	}
	if !strings.Contains(strings.Join(r.AreasToImprove, "|"), "tenses, clauses") {
		t.Errorf("areas %v missing grammar concepts", r.AreasToImprove)
	}
}

func TestComprehensiveNextStepsDefault(t *testing.T) {
	r := score.Comprehensive(samplePassage, samplePassage, sampleWords(samplePassage), 6*time.Second, 5, nil)
	if len(r.NextSteps) != 1 || !strings.Contains(r.NextSteps[0], "Continue practicing") {
		t.Errorf("next steps = %v, want maintenance default", r.NextSteps)
	}
}

func TestAnalyzeOverallRating(t *testing.T) {
	s := score.Analyze(samplePassage, samplePassage, 5, 6*time.Second)
	// Perfect accuracy at a strong rate: Independent, fluency 100.
	if s.AccuracyScore != 100 {
		t.Errorf("accuracy = %v, want 100", s.AccuracyScore)
	}
	if s.OverallRating != 100 {
		t.Errorf("overall = %v, want 100", s.OverallRating)
	}
	if len(s.Strengths) == 0 {
		t.Error("no strengths reported for a perfect reading")
	}
}
