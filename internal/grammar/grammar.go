// Package grammar defines the contract with the external grammar-evaluation
// collaborator. Quiz content and scoring live outside this engine; the only
// thing consumed here is the evaluation summary, which the scorer blends
// into the combined literacy score.
package grammar

// Evaluation is the result of an externally scored grammar assessment.
type Evaluation struct {
	// Score is the grammar test score in [0, 100].
	Score float64 `json:"score"`

	// ProficiencyLevel is the evaluator's categorical rating.
	ProficiencyLevel string `json:"proficiency_level"`

	// ConceptsMastered lists concept names the learner handled well.
	ConceptsMastered []string `json:"concepts_mastered"`

	// ConceptsToImprove lists concept names needing review.
	ConceptsToImprove []string `json:"concepts_to_improve"`
}
