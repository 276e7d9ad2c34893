package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/core/ports"
)

const minEvidenceFloor = 3

// RetrievalUseCase runs hybrid search over the passage index: semantic and
// keyword results are merged by passage id, scored, and filtered by a
// dynamic threshold.
type RetrievalUseCase struct {
	embedder ports.QueryEmbedder
	index    ports.PassageIndex
}

func NewRetrievalUseCase(embedder ports.QueryEmbedder, index ports.PassageIndex) *RetrievalUseCase {
	return &RetrievalUseCase{
		embedder: embedder,
		index:    index,
	}
}

func (uc *RetrievalUseCase) Retrieve(
	ctx context.Context,
	organizationID string,
	query string,
	profile domain.QueryProfile,
	params domain.RetrievalParameters,
) (*domain.RetrievalResult, error) {
	terms := queryTerms(query)
	phrase := strings.ToLower(strings.TrimSpace(query))

	// A failed embedding degrades to keyword-only retrieval instead of
	// failing the whole request.
	var semantic []domain.ScoredPassage
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err == nil && len(queryVector) > 0 {
		semantic, err = uc.index.Search(ctx, organizationID, queryVector, params.TopK)
		if err != nil {
			return nil, fmt.Errorf("semantic search: %w", err)
		}
	}

	var keyword []domain.ScoredPassage
	if len(terms) > 0 {
		keyword, err = uc.index.KeywordSearch(ctx, organizationID, terms, params.TopK)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
	}

	candidates := mergeCandidates(semantic, keyword, queryVector, terms, phrase, params.KeywordWeight)

	result := &domain.RetrievalResult{
		SemanticCandidates: len(semantic),
		KeywordCandidates:  len(keyword),
		AppliedThreshold:   params.SimilarityThreshold,
	}
	if len(candidates) == 0 {
		result.NoEvidence = true
		return result, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].HybridScore > candidates[j].HybridScore
	})

	threshold := dynamicThreshold(candidates, params.SimilarityThreshold, profile)
	filtered := make([]domain.RetrievalCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HybridScore >= threshold {
			filtered = append(filtered, c)
		}
	}

	// Keep a minimum evidence floor: never starve the prompt when raw
	// candidates exist.
	if len(filtered) < minEvidenceFloor && len(candidates) >= minEvidenceFloor {
		filtered = append(filtered[:0], candidates[:minEvidenceFloor]...)
	}

	if params.TopK > 0 && len(filtered) > params.TopK {
		filtered = filtered[:params.TopK]
	}

	result.Candidates = filtered
	result.AppliedThreshold = threshold
	result.NoEvidence = len(filtered) == 0
	return result, nil
}

// SearchPassages exposes the full retrieval pipeline for standalone search:
// analysis, hybrid retrieval, re-ranking, and diversification.
func (uc *RetrievalUseCase) SearchPassages(
	ctx context.Context,
	organizationID string,
	query string,
	topK int,
) ([]domain.RetrievalCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search passages", fmt.Errorf("query is required"))
	}
	if organizationID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search passages", fmt.Errorf("organization_id is required"))
	}

	profile := analyzeQuery(query)
	params := selectRetrievalParameters(profile)
	if topK > 0 {
		params.TopK = topK
	}

	result, err := uc.Retrieve(ctx, organizationID, query, profile, params)
	if err != nil {
		return nil, err
	}

	ranked := rerankCandidates(profile, result.Candidates)
	return diversifyCandidates(ranked, maxPassagesPerDocument), nil
}

// mergeCandidates unions semantic and keyword hits by passage id, in
// semantic-rank order followed by keyword-only hits. Keyword scores are
// recomputed locally so both branches share one scale.
func mergeCandidates(
	semantic, keyword []domain.ScoredPassage,
	queryVector []float32,
	terms []string,
	phrase string,
	keywordWeight float64,
) []domain.RetrievalCandidate {
	candidates := make([]domain.RetrievalCandidate, 0, len(semantic)+len(keyword))
	byID := make(map[string]struct{}, len(semantic)+len(keyword))

	for _, hit := range semantic {
		if _, ok := byID[hit.Passage.ID]; ok {
			continue
		}
		byID[hit.Passage.ID] = struct{}{}
		candidates = append(candidates, newCandidate(hit.Passage, hit.Score, terms, phrase, keywordWeight))
	}

	for _, hit := range keyword {
		if _, ok := byID[hit.Passage.ID]; ok {
			continue
		}
		byID[hit.Passage.ID] = struct{}{}
		semanticScore := cosineSimilarity(queryVector, hit.Passage.Embedding)
		candidates = append(candidates, newCandidate(hit.Passage, semanticScore, terms, phrase, keywordWeight))
	}

	return candidates
}

func newCandidate(
	passage domain.Passage,
	semanticScore float64,
	terms []string,
	phrase string,
	keywordWeight float64,
) domain.RetrievalCandidate {
	kw := keywordScore(terms, phrase, passage.Text)
	hybrid := (1-keywordWeight)*semanticScore + keywordWeight*kw
	return domain.RetrievalCandidate{
		Passage:       passage,
		SemanticScore: semanticScore,
		KeywordScore:  kw,
		HybridScore:   hybrid,
		FinalScore:    hybrid,
	}
}

// keywordScore measures non-stopword term overlap: an exact token match
// counts double a partial one, normalized to [0,1], with a 1.5x boost when
// the whole query phrase appears verbatim.
func keywordScore(terms []string, phrase, text string) float64 {
	if len(terms) == 0 {
		return 0
	}

	tokens := splitAlphaNumLower(text)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = struct{}{}
	}

	score := 0.0
	for _, term := range terms {
		if _, ok := tokenSet[term]; ok {
			score += 2
			continue
		}
		for _, token := range tokens {
			if strings.Contains(token, term) {
				score++
				break
			}
		}
	}
	score /= float64(2 * len(terms))

	if phrase != "" && strings.Contains(strings.ToLower(text), phrase) {
		score *= 1.5
	}
	return clamp01(score)
}

// dynamicThreshold adapts the base similarity floor to the observed score
// distribution. Candidates must be sorted by hybrid score descending.
func dynamicThreshold(candidates []domain.RetrievalCandidate, base float64, profile domain.QueryProfile) float64 {
	if len(candidates) == 0 {
		return base
	}

	maxScore := candidates[0].HybridScore
	topN := len(candidates)
	if topN > 5 {
		topN = 5
	}
	var topSum float64
	for _, c := range candidates[:topN] {
		topSum += c.HybridScore
	}
	topMean := topSum / float64(topN)

	threshold := base
	switch {
	case maxScore > 0.8:
		if strict := 0.8 * topMean; strict > threshold {
			threshold = strict
		}
	case maxScore < 0.6:
		if lenient := 0.7 * maxScore; lenient < threshold {
			threshold = lenient
		}
	}

	if profile.Complexity == domain.ComplexityHigh {
		threshold *= 0.9
	}
	if profile.IsSpecific {
		threshold *= 1.1
	}
	return clamp01(threshold)
}
