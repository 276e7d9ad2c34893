package usecase

import "github.com/kazaneza/openchat/internal/core/domain"

// Base retrieval knobs per complexity tier.
var baseParameters = map[domain.Complexity]domain.RetrievalParameters{
	domain.ComplexityLow:    {TopK: 5, SimilarityThreshold: 0.50, KeywordWeight: 0.20},
	domain.ComplexityMedium: {TopK: 8, SimilarityThreshold: 0.40, KeywordWeight: 0.25},
	domain.ComplexityHigh:   {TopK: 15, SimilarityThreshold: 0.35, KeywordWeight: 0.30},
}

// selectRetrievalParameters maps a profile to retrieval knobs. Pure lookup
// plus additive adjustments; higher complexity never yields fewer candidates
// or a higher threshold.
func selectRetrievalParameters(profile domain.QueryProfile) domain.RetrievalParameters {
	params, ok := baseParameters[profile.Complexity]
	if !ok {
		params = baseParameters[domain.ComplexityMedium]
	}

	if profile.Intent == domain.IntentComparison {
		params.TopK += 3
	}
	if profile.IsMultipart {
		params.TopK += 2
	}
	if profile.IsSpecific {
		params.SimilarityThreshold = clamp01(params.SimilarityThreshold + 0.10)
	}

	return params
}
