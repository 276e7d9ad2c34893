package domain

type AnswerRequest struct {
	OrganizationID string `json:"organization_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"query"`
}

type Source struct {
	DocumentName string  `json:"document_name"`
	Page         int     `json:"page"`
	Similarity   float64 `json:"similarity"`
}

// EngineAnswer is the full result of one pipeline run.
type EngineAnswer struct {
	ResponseText      string           `json:"response_text"`
	Sources           []Source         `json:"sources"`
	Confidence        ConfidenceReport `json:"confidence_report"`
	Validation        ValidationResult `json:"validation_result"`
	FactCheck         FactCheckReport  `json:"fact_check"`
	FollowUpQuestions []string         `json:"follow_up_questions"`
	ConversationID    string           `json:"conversation_id"`
	Profile           QueryProfile     `json:"query_profile"`
}
