package usecase

import (
	"testing"

	"github.com/kazaneza/openchat/internal/core/domain"
)

func TestAnalyzeQueryComparison(t *testing.T) {
	profile := analyzeQuery("Compare Product A and Product B")

	if profile.Intent != domain.IntentComparison {
		t.Fatalf("expected comparison intent, got %s", profile.Intent)
	}
	if !profile.IsMultipart {
		t.Fatalf("expected multipart query")
	}
	if profile.IsSpecific {
		t.Fatalf("expected non-specific query")
	}
	if profile.Complexity != domain.ComplexityHigh {
		t.Fatalf("expected high complexity, got %s", profile.Complexity)
	}
}

func TestAnalyzeQueryShortLookupIsLow(t *testing.T) {
	profile := analyzeQuery("refund policy details")

	if profile.Intent != domain.IntentFactualLookup {
		t.Fatalf("expected factual lookup, got %s", profile.Intent)
	}
	if !profile.IsSpecific {
		t.Fatalf("expected short query to count as specific")
	}
	if profile.Complexity != domain.ComplexityLow {
		t.Fatalf("expected low complexity, got %s", profile.Complexity)
	}
}

func TestAnalyzeQueryProcedural(t *testing.T) {
	profile := analyzeQuery("How do I configure the backup schedule?")

	if profile.Intent != domain.IntentProcedural {
		t.Fatalf("expected procedural intent, got %s", profile.Intent)
	}
	if profile.Complexity != domain.ComplexityMedium {
		t.Fatalf("expected medium complexity, got %s", profile.Complexity)
	}
}

func TestAnalyzeQueryYesNoPrefix(t *testing.T) {
	profile := analyzeQuery("Does the premium plan cover weekend support?")

	if profile.Intent != domain.IntentYesNo {
		t.Fatalf("expected yes/no intent, got %s", profile.Intent)
	}
}

func TestAnalyzeQueryComparisonMarkerWinsTies(t *testing.T) {
	// "what is" scores factual, "difference" scores comparison; the
	// comparison marker dominates.
	profile := analyzeQuery("What is the difference between the two plans?")

	if profile.Intent != domain.IntentComparison {
		t.Fatalf("expected comparison intent, got %s", profile.Intent)
	}
}

func TestAnalyzeQueryNumbersMarkSpecific(t *testing.T) {
	profile := analyzeQuery("Show the storage limits for plan 3 in the enterprise tier")

	if !profile.IsSpecific {
		t.Fatalf("expected numeric query to be specific")
	}
}

func TestAnalyzeQueryLongMultipartRaisesComplexity(t *testing.T) {
	profile := analyzeQuery("Explain how the retention policy applies to archived conversations and whether deleted records remain visible to administrators after the grace period ends")

	if !profile.IsMultipart {
		t.Fatalf("expected multipart query")
	}
	if profile.WordCount <= 15 {
		t.Fatalf("expected more than 15 words, got %d", profile.WordCount)
	}
	if profile.Complexity != domain.ComplexityHigh {
		t.Fatalf("expected high complexity, got %s", profile.Complexity)
	}
}

func TestAnalyzeQueryDeterministic(t *testing.T) {
	first := analyzeQuery("Compare the basic and premium plans?")
	second := analyzeQuery("Compare the basic and premium plans?")

	if first != second {
		t.Fatalf("expected identical profiles, got %+v and %+v", first, second)
	}
}
