package usecase

import (
	"testing"

	"github.com/kazaneza/openchat/internal/core/domain"
)

func TestSelectRetrievalParametersByComplexity(t *testing.T) {
	low := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.ComplexityLow})
	medium := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.ComplexityMedium})
	high := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.ComplexityHigh})

	if low.TopK != 5 || medium.TopK != 8 || high.TopK != 15 {
		t.Fatalf("unexpected top-k progression: %d, %d, %d", low.TopK, medium.TopK, high.TopK)
	}
	if !(high.SimilarityThreshold < medium.SimilarityThreshold && medium.SimilarityThreshold < low.SimilarityThreshold) {
		t.Fatalf("threshold must fall as complexity rises: %v, %v, %v",
			low.SimilarityThreshold, medium.SimilarityThreshold, high.SimilarityThreshold)
	}
	if !(low.KeywordWeight < medium.KeywordWeight && medium.KeywordWeight < high.KeywordWeight) {
		t.Fatalf("keyword weight must rise with complexity: %v, %v, %v",
			low.KeywordWeight, medium.KeywordWeight, high.KeywordWeight)
	}
}

func TestSelectRetrievalParametersComparisonWantsMoreCandidates(t *testing.T) {
	base := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.ComplexityMedium})
	comparison := selectRetrievalParameters(domain.QueryProfile{
		Complexity: domain.ComplexityMedium,
		Intent:     domain.IntentComparison,
	})

	if comparison.TopK != base.TopK+3 {
		t.Fatalf("expected top-k %d for comparison, got %d", base.TopK+3, comparison.TopK)
	}
}

func TestSelectRetrievalParametersMultipartWantsMoreCandidates(t *testing.T) {
	params := selectRetrievalParameters(domain.QueryProfile{
		Complexity:  domain.ComplexityLow,
		IsMultipart: true,
	})

	if params.TopK != 7 {
		t.Fatalf("expected top-k 7, got %d", params.TopK)
	}
}

func TestSelectRetrievalParametersSpecificRaisesThreshold(t *testing.T) {
	base := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.ComplexityLow})
	specific := selectRetrievalParameters(domain.QueryProfile{
		Complexity: domain.ComplexityLow,
		IsSpecific: true,
	})

	want := base.SimilarityThreshold + 0.10
	if specific.SimilarityThreshold < want-1e-9 || specific.SimilarityThreshold > want+1e-9 {
		t.Fatalf("expected threshold %v, got %v", want, specific.SimilarityThreshold)
	}
}

func TestSelectRetrievalParametersUnknownComplexityFallsBack(t *testing.T) {
	params := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.Complexity("unknown")})
	medium := selectRetrievalParameters(domain.QueryProfile{Complexity: domain.ComplexityMedium})

	if params != medium {
		t.Fatalf("expected medium fallback, got %+v", params)
	}
}
