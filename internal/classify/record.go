// Package classify turns free-form model output into a complete
// classification record and runs one detection end to end.
package classify

// Labels.
const (
	LabelAI        = "ai"
	LabelHuman     = "human"
	LabelUncertain = "uncertain"
)

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	// DefaultMethodology is used when the model omits methodology.
	DefaultMethodology = "multi-dimensional feature analysis for AI text detection"

	fallbackMethodology = "basic pattern matching"
	fallbackAnalysis    = "The model response did not match the required format, so no detailed analysis is available."
	fallbackIndicator   = "format parse failure"
	fallbackReasonLimit = 100
)

// Record is a normalized classification. Every field is always populated
// and within its domain.
type Record struct {
	Label            string   `json:"label"`
	Score            float64  `json:"score"`
	Confidence       string   `json:"confidence"`
	Rationale        string   `json:"rationale"`
	DetailedAnalysis string   `json:"detailed_analysis"`
	KeyIndicators    []string `json:"key_indicators"`
	Methodology      string   `json:"methodology"`
}

// Fallback returns the record used whenever model output cannot be parsed.
func Fallback(err error) Record {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if r := []rune(msg); len(r) > fallbackReasonLimit {
		msg = string(r[:fallbackReasonLimit])
	}
	return Record{
		Label:            LabelUncertain,
		Score:            0.5,
		Confidence:       ConfidenceLow,
		Rationale:        "detection failed: " + msg,
		DetailedAnalysis: fallbackAnalysis,
		KeyIndicators:    []string{fallbackIndicator},
		Methodology:      fallbackMethodology,
	}
}

func validLabel(s string) bool {
	return s == LabelAI || s == LabelHuman || s == LabelUncertain
}

func validConfidence(s string) bool {
	return s == ConfidenceHigh || s == ConfidenceMedium || s == ConfidenceLow
}
