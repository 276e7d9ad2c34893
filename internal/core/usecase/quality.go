package usecase

import (
	"regexp"
	"strings"

	"github.com/kazaneza/openchat/internal/core/domain"
)

const maxFactCheckClaims = 5

var (
	numericTokenPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?(?:\s*(?:GB|MB|KB|%|dollars?|\$|euros?|€))?`)
	negationPattern     = regexp.MustCompile(`\b(?:not|no|never|doesn't|don't|isn't|aren't|wasn't)\b`)
	sentencePattern     = regexp.MustCompile(`[.!?]+`)
	listItemPattern     = regexp.MustCompile(`\b\d+[.)]\s`)
	bulletPattern       = regexp.MustCompile(`\n\s*[-*•]\s`)
	stepWordPattern     = regexp.MustCompile(`\b(?:step|first|second|third|then|next|finally)\b`)
	claimVerbPattern    = regexp.MustCompile(`\b(?:is|are|has|have|contains|includes)\b`)
	digitPattern        = regexp.MustCompile(`\d`)
)

var hedgePhrases = []string{
	"i think", "i believe", "it seems", "it appears",
	"probably", "possibly", "might be", "could be",
	"it's likely", "perhaps",
}

// Uncertainty tiers, checked strongest first.
var uncertaintyTiers = []struct {
	level      domain.UncertaintyLevel
	indicators []string
}{
	{domain.UncertaintyHigh, []string{"not sure", "uncertain", "unclear", "cannot determine", "insufficient information"}},
	{domain.UncertaintyMedium, []string{"may", "might", "could", "possibly", "perhaps", "it seems"}},
	{domain.UncertaintyLow, []string{"likely", "probably", "appears to"}},
}

// validateResponse checks a generated answer against the evidence it was
// built from. Each failed check multiplies the quality score down; only an
// empty answer invalidates the response outright.
func validateResponse(
	response string,
	evidence []domain.RetrievalCandidate,
	query string,
	profile domain.QueryProfile,
) domain.ValidationResult {
	result := domain.ValidationResult{
		IsValid:      true,
		QualityScore: 1.0,
		Uncertainty:  domain.UncertaintyNone,
	}

	if len(strings.TrimSpace(response)) < 10 {
		result.IsValid = false
		result.Issues = append(result.Issues, "Response too short or empty")
		result.QualityScore *= 0.1
		return result
	}

	evidenceText := combinedEvidenceText(evidence)
	evidenceLower := strings.ToLower(evidenceText)
	responseLower := strings.ToLower(response)

	if warnings := hallucinationWarnings(response, evidenceText); len(warnings) > 0 {
		result.Warnings = append(result.Warnings, warnings...)
		result.QualityScore *= 0.8
	}
	for _, phrase := range hedgePhrases {
		if strings.Contains(responseLower, phrase) {
			result.Warnings = append(result.Warnings, `Contains uncertain language: "`+phrase+`"`)
		}
	}

	result.GroundingScore = groundingScore(response, evidence)
	result.QualityScore *= result.GroundingScore
	if result.GroundingScore < 0.3 {
		result.Warnings = append(result.Warnings, "Response may not be well-grounded in sources")
	}

	if negationPattern.MatchString(responseLower) && len(evidence) > 0 && !negationPattern.MatchString(evidenceLower) {
		result.Warnings = append(result.Warnings, "Response contains negations not clearly supported by sources")
		result.QualityScore *= 0.7
	}

	result.CompletenessScore = completenessScore(response, query, profile.Intent)
	result.QualityScore *= result.CompletenessScore
	if result.CompletenessScore < 0.5 {
		result.Warnings = append(result.Warnings, "Response may be incomplete")
	}

	result.Uncertainty = detectUncertainty(responseLower)
	if result.Uncertainty == domain.UncertaintyHigh {
		result.QualityScore *= 0.9
	}

	return result
}

func combinedEvidenceText(evidence []domain.RetrievalCandidate) string {
	parts := make([]string, 0, len(evidence))
	for _, c := range evidence {
		parts = append(parts, c.Passage.Text)
	}
	return strings.Join(parts, " ")
}

// hallucinationWarnings flags numeric tokens in the answer that appear in no
// evidence passage.
func hallucinationWarnings(response, evidenceText string) []string {
	numbers := numericTokenPattern.FindAllString(response, -1)
	if len(numbers) == 0 {
		return nil
	}

	var warnings []string
	for _, number := range numbers {
		if !strings.Contains(evidenceText, number) {
			warnings = append(warnings, `Numeric value "`+number+`" not found in sources`)
		}
	}
	return warnings
}

// groundingScore is the fraction of answer words that also occur in the
// evidence, summed per passage and capped at 1.
func groundingScore(response string, evidence []domain.RetrievalCandidate) float64 {
	if len(evidence) == 0 {
		return 0
	}
	responseWords := toTokenSet(response)
	if len(responseWords) == 0 {
		return 0
	}

	total := 0
	for _, c := range evidence {
		passageWords := toTokenSet(c.Passage.Text)
		for word := range responseWords {
			if _, ok := passageWords[word]; ok {
				total++
			}
		}
	}
	return clamp01(float64(total) / float64(len(responseWords)))
}

func completenessScore(response, query string, intent domain.Intent) float64 {
	score := 1.0
	queryLower := strings.ToLower(query)

	switch intent {
	case domain.IntentComparison:
		if strings.Contains(queryLower, "compare") || strings.Contains(queryLower, "versus") {
			entities := extractQueryEntities(query)
			if len(entities) >= 2 {
				mentions := 0
				for _, entity := range entities[:2] {
					if strings.Contains(response, entity) {
						mentions++
					}
				}
				score = float64(mentions) / 2.0
			}
		}
	case domain.IntentList:
		items := len(listItemPattern.FindAllString(response, -1)) + len(bulletPattern.FindAllString(response, -1))
		if items < 2 {
			score *= 0.7
		}
	case domain.IntentProcedural:
		steps := len(stepWordPattern.FindAllString(strings.ToLower(response), -1))
		if steps < 2 {
			score *= 0.8
		}
	}

	if len(strings.Fields(query)) < 10 && len(strings.Fields(response)) < 30 {
		score *= 0.9
	}
	return score
}

// extractQueryEntities pulls capitalized phrases out of a query, skipping a
// leading intent verb such as "Compare".
func extractQueryEntities(query string) []string {
	trimmed := strings.TrimSpace(query)
	if first, rest, ok := strings.Cut(trimmed, " "); ok {
		lower := strings.ToLower(strings.Trim(first, ".,:;?!"))
		if _, common := commonTopicWords[lower]; common {
			trimmed = rest
		}
	}

	seen := make(map[string]struct{})
	var entities []string
	for _, match := range topicPattern.FindAllString(trimmed, -1) {
		if !strings.ContainsRune(match, ' ') {
			if _, common := commonTopicWords[strings.ToLower(match)]; common {
				continue
			}
		}
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		entities = append(entities, match)
	}
	return entities
}

func detectUncertainty(responseLower string) domain.UncertaintyLevel {
	for _, tier := range uncertaintyTiers {
		for _, indicator := range tier.indicators {
			if strings.Contains(responseLower, indicator) {
				return tier.level
			}
		}
	}
	return domain.UncertaintyNone
}

// factCheckResponse verifies the most load-bearing declarative sentences of
// the answer against the evidence by word overlap. Unverified claims keep a
// stated reason.
func factCheckResponse(response string, evidence []domain.RetrievalCandidate) domain.FactCheckReport {
	claims := extractClaims(response)
	report := domain.FactCheckReport{
		TotalCount: len(claims),
		Score:      1.0,
	}
	if len(claims) == 0 {
		return report
	}

	evidenceWords := toTokenSet(combinedEvidenceText(evidence))
	for _, claim := range claims {
		claimWords := toTokenSet(claim)
		overlap := tokenOverlap(claimWords, evidenceWords)

		check := domain.ClaimCheck{
			Claim:   claim,
			Overlap: overlap,
		}
		if overlap > 0.3 {
			check.Verified = true
			check.Source = bestSupportingDocument(claimWords, evidence)
			report.VerifiedCount++
		} else {
			check.FailReason = "Insufficient support in sources"
		}
		report.Claims = append(report.Claims, check)
	}

	report.Score = float64(report.VerifiedCount) / float64(report.TotalCount)
	return report
}

func extractClaims(response string) []string {
	sentences := sentencePattern.Split(response, -1)

	claims := make([]string, 0, maxFactCheckClaims)
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 10 || strings.ContainsRune(sentence, '?') {
			continue
		}
		if !digitPattern.MatchString(sentence) && !claimVerbPattern.MatchString(strings.ToLower(sentence)) {
			continue
		}
		claims = append(claims, sentence)
		if len(claims) == maxFactCheckClaims {
			break
		}
	}
	return claims
}

func bestSupportingDocument(claimWords map[string]struct{}, evidence []domain.RetrievalCandidate) string {
	best := ""
	bestOverlap := 0
	for _, c := range evidence {
		passageWords := toTokenSet(c.Passage.Text)
		overlap := 0
		for word := range claimWords {
			if _, ok := passageWords[word]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = c.Passage.DocumentName
		}
	}
	return best
}

// computeConfidence combines the four quality components with fixed weights
// after clamping each to [0,1].
func computeConfidence(retrieval, validation, factCheck float64, sourceCount int) domain.ConfidenceReport {
	components := domain.ConfidenceComponents{
		Retrieval:  clamp01(retrieval),
		Validation: clamp01(validation),
		FactCheck:  clamp01(factCheck),
		Sources:    clamp01(float64(sourceCount) / 5.0),
	}

	overall := components.Retrieval*0.35 +
		components.Validation*0.25 +
		components.FactCheck*0.30 +
		components.Sources*0.10

	report := domain.ConfidenceReport{
		Overall:    overall,
		Components: components,
	}
	switch {
	case overall >= 0.80:
		report.Level = domain.ConfidenceHigh
		report.Description = "High confidence - Well-supported by sources"
	case overall >= 0.60:
		report.Level = domain.ConfidenceMedium
		report.Description = "Medium confidence - Moderately supported"
	case overall >= 0.40:
		report.Level = domain.ConfidenceLow
		report.Description = "Low confidence - Limited source support"
	default:
		report.Level = domain.ConfidenceVeryLow
		report.Description = "Very low confidence - Insufficient evidence"
	}
	return report
}
