package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organization_id"`
	CurrentUserTurn int       `json:"current_user_turn"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Turn is one message in a conversation's append-only log. Ordering is
// carried by the turn/sequence columns; timestamps are informational.
type Turn struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	ConversationID string            `json:"conversation_id"`
	UserTurn       int               `json:"user_turn"`
	Role           string            `json:"role"`
	Content        string            `json:"content"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ConversationSummary condenses a contiguous turn range. Summaries layer
// on top of the log; the raw history is never rewritten.
type ConversationSummary struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ConversationID string    `json:"conversation_id"`
	TurnFrom       int       `json:"turn_from"`
	TurnTo         int       `json:"turn_to"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"created_at"`
}
