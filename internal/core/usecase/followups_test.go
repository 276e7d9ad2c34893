package usecase

import (
	"testing"

	"github.com/kazaneza/openchat/internal/core/domain"
)

func TestGenerateFollowUpsFactualLookup(t *testing.T) {
	evidence := []domain.RetrievalCandidate{
		candidateWithText("overview.pdf", "Cloud Storage replicates data across regions."),
	}

	followUps := generateFollowUps(
		domain.QueryProfile{Intent: domain.IntentFactualLookup},
		"What is Cloud Storage?",
		evidence,
		domain.EntitySet{},
		nil,
	)

	if len(followUps) != 4 {
		t.Fatalf("expected 4 follow-ups, got %v", followUps)
	}
	if followUps[0] != "Tell me more about Cloud Storage" {
		t.Fatalf("expected subject-based follow-up first, got %q", followUps[0])
	}
	if followUps[3] != "Are there other relevant documents I should review?" {
		t.Fatalf("expected document follow-up last, got %q", followUps[3])
	}
}

func TestGenerateFollowUpsProcedural(t *testing.T) {
	followUps := generateFollowUps(
		domain.QueryProfile{Intent: domain.IntentProcedural},
		"How do I restore a backup?",
		nil,
		domain.EntitySet{},
		nil,
	)

	want := []string{
		"What are the common challenges with this process?",
		"Are there any prerequisites I should know about?",
		"Can you provide more details on any specific step?",
	}
	if len(followUps) != len(want) {
		t.Fatalf("expected %d follow-ups, got %v", len(want), followUps)
	}
	for i := range want {
		if followUps[i] != want[i] {
			t.Fatalf("follow-up %d: expected %q, got %q", i, want[i], followUps[i])
		}
	}
}

func TestGenerateFollowUpsComparisonNeedsTwoSubjects(t *testing.T) {
	withSubjects := generateFollowUps(
		domain.QueryProfile{Intent: domain.IntentComparison},
		"Compare Plan Alpha versus Plan Beta",
		nil,
		domain.EntitySet{},
		nil,
	)
	if len(withSubjects) != 3 {
		t.Fatalf("expected 3 comparison follow-ups, got %v", withSubjects)
	}

	withoutSubjects := generateFollowUps(
		domain.QueryProfile{Intent: domain.IntentComparison},
		"compare them please",
		nil,
		domain.EntitySet{},
		nil,
	)
	if len(withoutSubjects) != 0 {
		t.Fatalf("expected no follow-ups without named subjects, got %v", withoutSubjects)
	}
}

func TestGenerateFollowUpsCapsAtFive(t *testing.T) {
	evidence := []domain.RetrievalCandidate{
		candidateWithText("manual.pdf", "Cloud Storage replicates data across regions."),
		candidateWithText("terms.pdf", "Storage fees apply per gigabyte."),
	}
	entities := domain.EntitySet{
		Documents: []string{"Annual Budget"},
		Values:    []string{"50 GB"},
	}

	followUps := generateFollowUps(
		domain.QueryProfile{Intent: domain.IntentFactualLookup},
		"What is Cloud Storage?",
		evidence,
		entities,
		[]string{"Backups"},
	)

	if len(followUps) != maxFollowUps {
		t.Fatalf("expected cap of %d follow-ups, got %v", maxFollowUps, followUps)
	}
	seen := make(map[string]bool, len(followUps))
	for _, q := range followUps {
		if seen[q] {
			t.Fatalf("duplicate follow-up %q", q)
		}
		seen[q] = true
	}
}
