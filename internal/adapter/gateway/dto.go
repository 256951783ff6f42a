package gateway

import "semanticheck/internal/domain"

// LocalAnalysisMessage accompanies every successful local analysis.
const LocalAnalysisMessage = "Local analysis complete."

type textPairRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type singleTextRequest struct {
	Text string `json:"text"`
}

type localResponse struct {
	SimilarityScore float64          `json:"similarity_score"`
	RiskLevel       domain.RiskLevel `json:"risk_level"`
	Message         string           `json:"message"`
}

type detailedResponse struct {
	SimilarityScore  float64          `json:"similarity_score"`
	RiskLevel        domain.RiskLevel `json:"risk_level"`
	DetailedAnalysis string           `json:"detailed_analysis"`
}

type healthResponse struct {
	Status            string `json:"status"`
	EmbeddingProvider string `json:"embedding_provider"`
	LLMConfigured     bool   `json:"llm_configured"`
}

func newLocalResponse(r domain.SimilarityResult) localResponse {
	return localResponse{SimilarityScore: r.Score, RiskLevel: r.Risk, Message: LocalAnalysisMessage}
}

func newDetailedResponse(r domain.DetailedResult) detailedResponse {
	return detailedResponse{
		SimilarityScore:  r.Score,
		RiskLevel:        r.Risk,
		DetailedAnalysis: r.Analysis.Text,
	}
}
