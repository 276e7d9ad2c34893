package domain

// Passage is an indexed document fragment owned by the ingestion side.
// Immutable once indexed; retrieval references it, never copies it.
type Passage struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	DocumentID     string    `json:"document_id"`
	DocumentName   string    `json:"document_name"`
	PageNumber     int       `json:"page_number"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"embedding,omitempty"`
	TokenCount     int       `json:"token_count"`
}

// ScoredPassage is what the passage index returns for one search leg.
type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// RankAdjustment is one named re-ranking delta applied to a candidate.
type RankAdjustment struct {
	Reason string  `json:"reason"`
	Delta  float64 `json:"delta"`
}

// RetrievalCandidate lives only for the duration of one request.
type RetrievalCandidate struct {
	Passage       Passage          `json:"passage"`
	SemanticScore float64          `json:"semantic_score"`
	KeywordScore  float64          `json:"keyword_score"`
	HybridScore   float64          `json:"hybrid_score"`
	Adjustments   []RankAdjustment `json:"adjustments,omitempty"`
	FinalScore    float64          `json:"final_score"`
}

// RetrievalResult carries the thresholded candidate set plus the signals
// downstream stages need. An empty candidate list is a valid outcome.
type RetrievalResult struct {
	Candidates         []RetrievalCandidate `json:"candidates"`
	AppliedThreshold   float64              `json:"applied_threshold"`
	SemanticCandidates int                  `json:"semantic_candidates"`
	KeywordCandidates  int                  `json:"keyword_candidates"`
	NoEvidence         bool                 `json:"no_evidence"`
}
