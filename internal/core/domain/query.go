package domain

type Intent string

const (
	IntentFactualLookup Intent = "factual_lookup"
	IntentComparison    Intent = "comparison"
	IntentProcedural    Intent = "procedural"
	IntentAnalytical    Intent = "analytical"
	IntentList          Intent = "list"
	IntentYesNo         Intent = "yes_no"
)

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// QueryProfile describes the structural shape of a single query.
// Complexity is a deterministic function of the other fields.
type QueryProfile struct {
	WordCount   int        `json:"word_count"`
	Intent      Intent     `json:"intent"`
	IsMultipart bool       `json:"is_multipart"`
	IsSpecific  bool       `json:"is_specific"`
	Complexity  Complexity `json:"complexity"`
}

// RetrievalParameters are the knobs the selector derives from a profile.
type RetrievalParameters struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	KeywordWeight       float64 `json:"keyword_weight"`
}
