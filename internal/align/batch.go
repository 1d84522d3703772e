package align

import (
	"strings"
	"time"

	"github.com/oratio-labs/oratio/internal/similarity"
)

// Status is the batch classification of one reference word.
type Status string

const (
	StatusCorrect       Status = "correct"
	StatusMispronounced Status = "mispronounced"
	StatusSubstituted   Status = "substituted"
	StatusSkipped       Status = "skipped"
)

// ExternalStatus is a classification assigned upstream by the transcription
// source, when it pre-classifies words. When present on a [SpokenWord] it is
// preferred over recomputing the status from string similarity.
type ExternalStatus string

const (
	ExternalNone          ExternalStatus = ""
	ExternalMispronounced ExternalStatus = "mispronounced"
	ExternalSubstituted   ExternalStatus = "substituted"
)

// SpokenWord is one token of a transcript as consumed by the aligner. All
// fields except Text are optional metadata from the transcription provider.
type SpokenWord struct {
	Text       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
	Status     ExternalStatus
}

// Mark is the tagged classification record of one reference word. Each
// concrete type carries only the fields meaningful to its case.
type Mark interface {
	Status() Status
}

// Correct marks a reference word read as written.
type Correct struct {
	// Confidence is the transcription confidence of the matched spoken word,
	// 1.0 when the provider reported none.
	Confidence float64
}

// Mispronounced marks a near-miss: the spoken word is recognisably the
// reference word but differs from it.
type Mispronounced struct {
	// Confidence is the similarity ratio (or the externally reported
	// confidence when the status came pre-classified).
	Confidence float64

	// Actual is what the reader said.
	Actual string

	// Phonetic is the phonetic comparison of Actual against the reference
	// word; diagnostic only.
	Phonetic similarity.PhoneticScore
}

// Substituted marks a wholly different word spoken in place of the
// reference word.
type Substituted struct {
	Confidence float64
	Actual     string
}

// Skipped marks a reference word with no spoken counterpart.
type Skipped struct{}

func (Correct) Status() Status       { return StatusCorrect }
func (Mispronounced) Status() Status { return StatusMispronounced }
func (Substituted) Status() Status   { return StatusSubstituted }
func (Skipped) Status() Status       { return StatusSkipped }

// Stats aggregates the classification counts of one alignment.
// Correct+Mispronounced+Substituted+Skipped always equals Total.
type Stats struct {
	Correct       int `json:"correct"`
	Mispronounced int `json:"mispronounced"`
	Substituted   int `json:"substituted"`
	Skipped       int `json:"skipped"`
	Total         int `json:"total"`
}

// Result is the outcome of a batch alignment. Marks[i] classifies reference
// word i; every index in range carries exactly one mark.
type Result struct {
	Marks []Mark
	Stats Stats
}

// Align classifies every word of ref against the spoken sequence. ref holds
// the lower-cased reference words; spoken carries the transcript tokens with
// any provider metadata. Each spoken word is matched to at most one
// reference word.
//
// An empty ref yields an empty result with Total 0. An empty spoken sequence
// marks every reference word skipped.
func Align(ref []string, spoken []SpokenWord) Result {
	res := Result{
		Marks: make([]Mark, len(ref)),
		Stats: Stats{Total: len(ref)},
	}
	if len(ref) == 0 {
		return res
	}

	spokenTexts := make([]string, len(spoken))
	for i, s := range spoken {
		spokenTexts[i] = strings.ToLower(s.Text)
	}

	for _, op := range Opcodes(ref, spokenTexts) {
		switch op.Tag {
		case OpEqual:
			for k := 0; k < op.I2-op.I1; k++ {
				conf := spoken[op.J1+k].Confidence
				if conf == 0 {
					conf = 1.0
				}
				res.Marks[op.I1+k] = Correct{Confidence: conf}
			}
		case OpDelete:
			for i := op.I1; i < op.I2; i++ {
				res.Marks[i] = Skipped{}
			}
		case OpReplace:
			classifyReplace(&res, ref, spoken, spokenTexts, op)
		case OpInsert:
			// Spoken-only words carry no reference outcome.
		}
	}

	// Catch-all: no reference index may be left unclassified.
	for i, m := range res.Marks {
		if m == nil {
			res.Marks[i] = Skipped{}
		}
		res.Stats.count(res.Marks[i].Status())
	}
	return res
}

// classifyReplace pairs a replace range element-wise up to the shorter side.
// Reference words beyond the spoken sub-range are skipped.
func classifyReplace(res *Result, ref []string, spoken []SpokenWord, spokenTexts []string, op Op) {
	for k := 0; k < op.I2-op.I1; k++ {
		i := op.I1 + k
		if k >= op.J2-op.J1 {
			res.Marks[i] = Skipped{}
			continue
		}
		j := op.J1 + k
		actual := spokenTexts[j]

		// A pre-classified word keeps its upstream status.
		switch spoken[j].Status {
		case ExternalMispronounced:
			res.Marks[i] = Mispronounced{
				Confidence: confidenceOr(spoken[j].Confidence, similarity.ThresholdMispronounced),
				Actual:     actual,
				Phonetic:   similarity.Phonetic(ref[i], actual),
			}
			continue
		case ExternalSubstituted:
			res.Marks[i] = Substituted{
				Confidence: confidenceOr(spoken[j].Confidence, similarity.ThresholdMispronounced),
				Actual:     actual,
			}
			continue
		}

		sim := similarity.Ratio(ref[i], actual)
		if sim > similarity.ThresholdMispronounced {
			res.Marks[i] = Mispronounced{
				Confidence: sim,
				Actual:     actual,
				Phonetic:   similarity.Phonetic(ref[i], actual),
			}
		} else {
			res.Marks[i] = Substituted{Confidence: sim, Actual: actual}
		}
	}
}

func confidenceOr(c, fallback float64) float64 {
	if c > 0 {
		return c
	}
	return fallback
}

func (s *Stats) count(st Status) {
	switch st {
	case StatusCorrect:
		s.Correct++
	case StatusMispronounced:
		s.Mispronounced++
	case StatusSubstituted:
		s.Substituted++
	case StatusSkipped:
		s.Skipped++
	}
}
