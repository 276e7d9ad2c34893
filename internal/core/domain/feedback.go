package domain

import "time"

type FeedbackKind string

const (
	FeedbackThumbsUp   FeedbackKind = "thumbs_up"
	FeedbackThumbsDown FeedbackKind = "thumbs_down"
	FeedbackCorrection FeedbackKind = "correction"
)

func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackThumbsUp, FeedbackThumbsDown, FeedbackCorrection:
		return true
	}
	return false
}

// Feedback is one user verdict on a delivered answer.
type Feedback struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	ConversationID string       `json:"conversation_id,omitempty"`
	Query          string       `json:"query"`
	Response       string       `json:"response"`
	Kind           FeedbackKind `json:"kind"`
	Rating         int          `json:"rating"`
	Correction     string       `json:"correction,omitempty"`
	Confidence     float64      `json:"confidence,omitempty"`
	Intent         Intent       `json:"intent,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// FeedbackDailyStats is one day's aggregate, maintained by the worker.
type FeedbackDailyStats struct {
	Day              time.Time `json:"day"`
	Total            int       `json:"total"`
	ThumbsUp         int       `json:"thumbs_up"`
	ThumbsDown       int       `json:"thumbs_down"`
	Corrections      int       `json:"corrections"`
	AvgConfidencePos float64   `json:"avg_confidence_positive"`
	AvgConfidenceNeg float64   `json:"avg_confidence_negative"`
	SuccessRate      float64   `json:"success_rate"`
}

// ProblematicQuery surfaces queries that keep drawing negative feedback.
type ProblematicQuery struct {
	Query       string  `json:"query"`
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	SuccessRate float64 `json:"success_rate"`
}

// FeedbackAnalytics is the aggregate view served to operators.
type FeedbackAnalytics struct {
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Total       int                  `json:"total"`
	SuccessRate float64              `json:"success_rate"`
	Days        []FeedbackDailyStats `json:"days"`
	Problematic []ProblematicQuery   `json:"problematic_queries"`
}
