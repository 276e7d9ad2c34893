package domain

// EntitySet holds the per-category entities mined from recent turns.
// Each slice is ordered most-recent-first and capped by the extractor.
type EntitySet struct {
	Documents []string `json:"documents,omitempty"`
	Values    []string `json:"values,omitempty"`
	Dates     []string `json:"dates,omitempty"`
}

// ReferenceSet records the referential phrases found in the current query.
type ReferenceSet struct {
	Pronouns       []string `json:"pronouns,omitempty"`
	Demonstratives []string `json:"demonstratives,omitempty"`
	VaguePhrases   []string `json:"vague_phrases,omitempty"`
}

func (r ReferenceSet) HasReferences() bool {
	return len(r.Pronouns) > 0 || len(r.Demonstratives) > 0 || len(r.VaguePhrases) > 0
}

// ConversationContext is the per-request view derived from the turn log.
// It is rebuilt on every request and never persisted or mutated in place.
type ConversationContext struct {
	RecentTurns        []Turn       `json:"recent_turns"`
	Topics             []string     `json:"topics,omitempty"`
	Entities           EntitySet    `json:"entities"`
	QuestionsAsked     []string     `json:"questions_asked,omitempty"`
	References         ReferenceSet `json:"references"`
	ResolvedQuery      string       `json:"resolved_query"`
	Warnings           []string     `json:"warnings,omitempty"`
	Summary            string       `json:"summary,omitempty"`
	NeedsSummarization bool         `json:"needs_summarization"`
	TurnCount          int          `json:"turn_count"`
}
