package usecase

import (
	"github.com/kazaneza/openchat/internal/core/domain"
)

const maxFollowUps = 5

// generateFollowUps produces template follow-up questions keyed by intent,
// augmented with entity and document names from the evidence set. No
// external call is made.
func generateFollowUps(
	profile domain.QueryProfile,
	query string,
	evidence []domain.RetrievalCandidate,
	entities domain.EntitySet,
	topics []string,
) []string {
	// The current query contributes topics too, ahead of older ones.
	subjects := append(extractQueryEntities(query), topics...)

	var followUps []string
	switch profile.Intent {
	case domain.IntentFactualLookup, domain.IntentYesNo:
		if len(subjects) > 0 {
			subject := subjects[0]
			followUps = append(followUps,
				"Tell me more about "+subject,
				"What are the key features of "+subject+"?",
				"How does "+subject+" compare to alternatives?",
			)
		}
	case domain.IntentComparison:
		if len(subjects) >= 2 {
			followUps = append(followUps,
				"What are the pros and cons of each?",
				"Which one is better for my specific needs?",
				"Are there other alternatives to consider?",
			)
		}
	case domain.IntentProcedural:
		followUps = append(followUps,
			"What are the common challenges with this process?",
			"Are there any prerequisites I should know about?",
			"Can you provide more details on any specific step?",
		)
	case domain.IntentAnalytical:
		followUps = append(followUps,
			"What are the implications of this?",
			"Are there any related considerations?",
			"What supporting evidence exists for this?",
		)
	case domain.IntentList:
		followUps = append(followUps,
			"Can you describe any of these items in more detail?",
			"Are there other items that should be included?",
			"Which of these is most important?",
		)
	}

	if documents := distinctDocuments(evidence); len(documents) > 0 {
		if len(documents) > 1 {
			followUps = append(followUps, "What else does "+documents[0]+" discuss?")
		}
		followUps = append(followUps, "Are there other relevant documents I should review?")
	}

	if len(entities.Documents) > 0 {
		followUps = append(followUps, "What other information is in "+entities.Documents[0]+"?")
	}
	if len(entities.Values) > 0 {
		followUps = append(followUps, "Can you explain these numbers in more context?")
	}

	return dedupeStrings(followUps, maxFollowUps)
}

func distinctDocuments(evidence []domain.RetrievalCandidate) []string {
	seen := make(map[string]struct{}, len(evidence))
	var documents []string
	for _, c := range evidence {
		name := c.Passage.DocumentName
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		documents = append(documents, name)
	}
	return documents
}

func dedupeStrings(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, limit)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
