package domain

// RiskLevel is the plagiarism risk band derived from a similarity score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Verdict labels the AI-content classifier is asked to produce.
const (
	VerdictHuman = "Likely Human"
	VerdictMixed = "Mixed"
	VerdictAI    = "Likely AI"
	VerdictError = "Error"
)

// SimilarityResult is the outcome of a local embedding comparison.
type SimilarityResult struct {
	Score float64   `json:"similarity_score"`
	Risk  RiskLevel `json:"risk_level"`
}

// AIDetectionResult is the classifier's structured verdict. When the remote
// call could not produce a verdict, Err is set and the visible fields carry
// the failure shape: probability 0, verdict "Error", reasoning describing why.
type AIDetectionResult struct {
	AIProbability int    `json:"ai_probability"`
	Verdict       string `json:"verdict"`
	Reasoning     string `json:"reasoning"`
	Err           error  `json:"-"`
}

// Failed reports whether the result is the failure shape.
func (r AIDetectionResult) Failed() bool { return r.Err != nil }

// AIDetectionFailure builds the failure shape for err. An empty reasoning
// falls back to err.Error().
func AIDetectionFailure(err error, reasoning string) AIDetectionResult {
	if reasoning == "" && err != nil {
		reasoning = err.Error()
	}
	return AIDetectionResult{
		AIProbability: 0,
		Verdict:       VerdictError,
		Reasoning:     reasoning,
		Err:           err,
	}
}

// ComparativeAnalysis is the free-form prose produced by the comparator.
// On failure Text holds a human-readable error message and Err is set.
type ComparativeAnalysis struct {
	Text string
	Err  error
}

// Failed reports whether the analysis carries an error message instead of prose.
func (a ComparativeAnalysis) Failed() bool { return a.Err != nil }

// DetailedResult combines the local similarity verdict with the comparator's prose.
type DetailedResult struct {
	SimilarityResult
	Analysis ComparativeAnalysis
}
