// Package norms provides grade-level oral reading fluency reference values.
// These are fixed lookup tables derived from published Hasbrouck & Tindal
// fluency norms (50th percentile, spring); they are load-bearing constants
// for the scorer and must not be tuned per call site.
package norms

// MinGrade and MaxGrade bound the supported grade-level range. Lookups
// outside the range clamp to the nearest bound.
const (
	MinGrade = 1
	MaxGrade = 12
)

// benchmarkWPM is the expected words-per-minute target per grade level.
var benchmarkWPM = map[int]float64{
	1:  60,
	2:  95,
	3:  115,
	4:  140,
	5:  150,
	6:  160,
	7:  165,
	8:  170,
	9:  180,
	10: 190,
	11: 200,
	12: 210,
}

// estimateWPM is the typical observed reading rate per grade level, used
// only when no audio duration is available to compute a real WPM. It is a
// distinct table from [BenchmarkWPM]: typical rates sit below the target at
// the lower grades.
var estimateWPM = map[int]float64{
	1:  60,
	2:  90,
	3:  110,
	4:  130,
	5:  140,
	6:  150,
	7:  160,
	8:  170,
	9:  180,
	10: 190,
	11: 200,
	12: 210,
}

// ClampGrade returns grade clamped to [MinGrade, MaxGrade].
func ClampGrade(grade int) int {
	if grade < MinGrade {
		return MinGrade
	}
	if grade > MaxGrade {
		return MaxGrade
	}
	return grade
}

// BenchmarkWPM returns the expected words-per-minute benchmark for the given
// grade level. Out-of-range grades clamp to the nearest supported grade.
func BenchmarkWPM(grade int) float64 {
	return benchmarkWPM[ClampGrade(grade)]
}

// EstimateWPM returns a typical reading rate for the given grade level, for
// use when the recording duration is unknown. Out-of-range grades clamp.
func EstimateWPM(grade int) float64 {
	return estimateWPM[ClampGrade(grade)]
}
