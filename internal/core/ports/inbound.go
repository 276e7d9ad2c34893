package ports

import (
	"context"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

// AnswerService is the inbound contract for answering queries.
type AnswerService interface {
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.EngineAnswer, error)
	// AnswerStream emits response fragments through onDelta and returns the
	// fully validated answer after the stream completes.
	AnswerStream(ctx context.Context, req domain.AnswerRequest, onDelta func(delta string) error) (*domain.EngineAnswer, error)
}

// PassageSearcher is the inbound contract for standalone hybrid search.
type PassageSearcher interface {
	SearchPassages(ctx context.Context, organizationID, query string, topK int) ([]domain.RetrievalCandidate, error)
}

// ConversationReader is the inbound read model for conversation history.
type ConversationReader interface {
	ListTurns(ctx context.Context, organizationID, conversationID string, limit int) ([]domain.Turn, error)
}

// FeedbackService is the inbound contract for collecting and reading feedback.
type FeedbackService interface {
	Submit(ctx context.Context, fb domain.Feedback) error
	Analytics(ctx context.Context, from, to time.Time) (*domain.FeedbackAnalytics, error)
}

// FeedbackProcessor is the inbound contract for asynchronous feedback processing.
type FeedbackProcessor interface {
	Process(ctx context.Context, fb domain.Feedback) error
}
