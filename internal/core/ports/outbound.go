package ports

import (
	"context"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

// PassageIndex reads the pre-built passage index.
type PassageIndex interface {
	Search(ctx context.Context, organizationID string, queryVector []float32, topK int) ([]domain.ScoredPassage, error)
	KeywordSearch(ctx context.Context, organizationID string, terms []string, topK int) ([]domain.ScoredPassage, error)
}

// QueryEmbedder builds a vector for query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionService generates answer text from a fully assembled prompt.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteStream invokes onDelta for each text fragment and returns the
	// accumulated response once the stream ends.
	CompleteStream(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error)
}

// ConversationStore persists conversation state and turns.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, organizationID, conversationID string) (*domain.Conversation, error)
	// NextUserTurn allocates the next turn number. Allocation is serialized
	// per conversation so concurrent requests never share a turn.
	NextUserTurn(ctx context.Context, organizationID, conversationID string) (int, error)
	AppendTurn(ctx context.Context, turn domain.Turn) error
	ListRecentTurns(ctx context.Context, organizationID, conversationID string, limit int) ([]domain.Turn, error)
	ListTurnRange(ctx context.Context, organizationID, conversationID string, turnFrom, turnTo int) ([]domain.Turn, error)
	LatestSummary(ctx context.Context, organizationID, conversationID string) (*domain.ConversationSummary, error)
	SaveSummary(ctx context.Context, summary *domain.ConversationSummary) error
	DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FeedbackStore persists feedback records and their aggregates.
type FeedbackStore interface {
	Insert(ctx context.Context, fb *domain.Feedback) error
	ApplyToDailyStats(ctx context.Context, fb domain.Feedback) error
	ListDailyStats(ctx context.Context, from, to time.Time) ([]domain.FeedbackDailyStats, error)
	ListProblematicQueries(ctx context.Context, minNegative int, maxSuccessRate float64, limit int) ([]domain.ProblematicQuery, error)
}

// FeedbackQueue moves feedback events from the API to the worker.
type FeedbackQueue interface {
	PublishFeedback(ctx context.Context, fb domain.Feedback) error
	SubscribeFeedback(ctx context.Context, handler func(context.Context, domain.Feedback) error) error
}
