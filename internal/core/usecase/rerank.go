package usecase

import (
	"sort"
	"strings"

	"github.com/kazaneza/openchat/internal/core/domain"
)

const maxPassagesPerDocument = 3

var comparativeMarkers = []string{"more", "less", "better", "worse", "than", "versus", "compared"}

// rerankCandidates applies positional, length, and intent boosts on top of
// the hybrid score. The sort is stable, so candidates with equal final
// scores keep their retrieval order.
func rerankCandidates(profile domain.QueryProfile, candidates []domain.RetrievalCandidate) []domain.RetrievalCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	out := make([]domain.RetrievalCandidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		adjustments := make([]domain.RankAdjustment, 0, 3)

		if out[i].Passage.PageNumber == 1 {
			adjustments = append(adjustments, domain.RankAdjustment{Reason: "first_page", Delta: 0.05})
		}

		words := len(strings.Fields(out[i].Passage.Text))
		switch {
		case words >= 50 && words <= 300:
			adjustments = append(adjustments, domain.RankAdjustment{Reason: "length_ideal", Delta: 0.03})
		case words < 20:
			adjustments = append(adjustments, domain.RankAdjustment{Reason: "length_short", Delta: -0.10})
		}

		if profile.Intent == domain.IntentComparison && hasComparativeLanguage(out[i].Passage.Text) {
			adjustments = append(adjustments, domain.RankAdjustment{Reason: "comparative_language", Delta: 0.05})
		}

		final := out[i].HybridScore
		for _, adj := range adjustments {
			final += adj.Delta
		}
		out[i].Adjustments = adjustments
		out[i].FinalScore = clamp01(final)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

// diversifyCandidates caps how many passages one document may contribute,
// keeping the highest-ranked ones.
func diversifyCandidates(candidates []domain.RetrievalCandidate, maxPerDocument int) []domain.RetrievalCandidate {
	if maxPerDocument <= 0 {
		maxPerDocument = maxPassagesPerDocument
	}

	counts := make(map[string]int, len(candidates))
	out := make([]domain.RetrievalCandidate, 0, len(candidates))
	for _, c := range candidates {
		if counts[c.Passage.DocumentID] >= maxPerDocument {
			continue
		}
		counts[c.Passage.DocumentID]++
		out = append(out, c)
	}
	return out
}

func hasComparativeLanguage(text string) bool {
	words := toTokenSet(text)
	for _, marker := range comparativeMarkers {
		if _, ok := words[marker]; ok {
			return true
		}
	}
	return false
}
