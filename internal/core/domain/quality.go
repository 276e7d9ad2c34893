package domain

type UncertaintyLevel string

const (
	UncertaintyNone   UncertaintyLevel = "none"
	UncertaintyLow    UncertaintyLevel = "low"
	UncertaintyMedium UncertaintyLevel = "medium"
	UncertaintyHigh   UncertaintyLevel = "high"
)

// ValidationResult is the outcome of checking a generated answer against
// its evidence. Sub-check failures surface as warnings, never as errors.
type ValidationResult struct {
	IsValid           bool             `json:"is_valid"`
	Issues            []string         `json:"issues,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
	QualityScore      float64          `json:"quality_score"`
	GroundingScore    float64          `json:"grounding_score"`
	CompletenessScore float64          `json:"completeness_score"`
	Uncertainty       UncertaintyLevel `json:"uncertainty_level"`
}

type ClaimCheck struct {
	Claim      string  `json:"claim"`
	Verified   bool    `json:"verified"`
	Source     string  `json:"source,omitempty"`
	Overlap    float64 `json:"overlap"`
	FailReason string  `json:"fail_reason,omitempty"`
}

// FactCheckReport covers the top claims extracted from an answer.
// Score is verified/total, or 1 when the answer makes no checkable claims.
type FactCheckReport struct {
	Claims        []ClaimCheck `json:"claims,omitempty"`
	VerifiedCount int          `json:"verified_count"`
	TotalCount    int          `json:"total_count"`
	Score         float64      `json:"score"`
}

type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "high"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceVeryLow ConfidenceLevel = "very_low"
)

type ConfidenceComponents struct {
	Retrieval  float64 `json:"retrieval"`
	Validation float64 `json:"validation"`
	FactCheck  float64 `json:"fact_check"`
	Sources    float64 `json:"sources"`
}

// ConfidenceReport combines the four quality components into one score.
// Overall is always the fixed weighted sum of the clamped components.
type ConfidenceReport struct {
	Overall     float64              `json:"overall"`
	Level       ConfidenceLevel      `json:"level"`
	Description string               `json:"description"`
	Components  ConfidenceComponents `json:"components"`
}
