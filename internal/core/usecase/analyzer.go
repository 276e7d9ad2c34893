package usecase

import (
	"strings"

	"github.com/kazaneza/openchat/internal/core/domain"
)

// Intent marker tables, matched against the lowercased query. Comparison is
// checked first: its markers dominate mixed queries.
var intentMarkers = []struct {
	intent  domain.Intent
	markers []string
}{
	{domain.IntentComparison, []string{"compare", "comparison", "versus", "vs", "difference", "better", "worse", "contrast", "alternative"}},
	{domain.IntentProcedural, []string{"how to", "how do", "how can", "steps", "process", "procedure", "instructions"}},
	{domain.IntentList, []string{"list", "what are the", "examples of", "types of", "enumerate"}},
	{domain.IntentAnalytical, []string{"why", "explain", "reason", "cause", "impact", "effect", "analyze", "analysis", "evaluate", "evaluation"}},
	{domain.IntentFactualLookup, []string{"what is", "what are", "who is", "where is", "when is", "define", "definition"}},
}

var yesNoPrefixes = []string{
	"is ", "are ", "do ", "does ", "did ", "can ", "could ",
	"will ", "would ", "should ", "has ", "have ", "was ", "were ",
}

// analyzeQuery derives a QueryProfile from the query text alone. It always
// succeeds; unknown intent falls back to factual lookup.
func analyzeQuery(query string) domain.QueryProfile {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)
	wordCount := len(strings.Fields(trimmed))
	words := toTokenSet(trimmed)

	intent := classifyIntent(lower, words)

	isMultipart := strings.Contains(lower, " and ") ||
		strings.Contains(lower, " or ") ||
		strings.Count(trimmed, "?") > 1

	isSpecific := strings.ContainsAny(trimmed, "0123456789") ||
		strings.ContainsAny(trimmed, `"'`) ||
		(wordCount > 0 && wordCount <= 5)

	// Weighted signals; the result depends only on the profile fields.
	score := 0
	if intent == domain.IntentComparison {
		score += 2
	}
	if isMultipart {
		score += 2
	}
	if wordCount > 15 {
		score++
	}
	if !isSpecific {
		score++
	}

	complexity := domain.ComplexityLow
	switch {
	case score >= 3:
		complexity = domain.ComplexityHigh
	case score >= 1:
		complexity = domain.ComplexityMedium
	}

	return domain.QueryProfile{
		WordCount:   wordCount,
		Intent:      intent,
		IsMultipart: isMultipart,
		IsSpecific:  isSpecific,
		Complexity:  complexity,
	}
}

func classifyIntent(lower string, words map[string]struct{}) domain.Intent {
	best := domain.IntentFactualLookup
	bestHits := 0
	for _, entry := range intentMarkers {
		hits := countMarkers(lower, words, entry.markers)
		if hits > bestHits {
			best = entry.intent
			bestHits = hits
		}
	}
	if bestHits > 0 {
		return best
	}
	for _, prefix := range yesNoPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return domain.IntentYesNo
		}
	}
	return domain.IntentFactualLookup
}
