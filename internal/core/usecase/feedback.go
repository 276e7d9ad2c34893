package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/core/ports"
)

const (
	problematicMinNegative    = 2
	problematicMaxSuccessRate = 0.5
	problematicQueryLimit     = 20
)

// FeedbackUseCase accepts user feedback on delivered answers and serves the
// aggregated view. Accepted feedback is published to the queue; the worker
// persists it.
type FeedbackUseCase struct {
	queue ports.FeedbackQueue
	store ports.FeedbackStore
}

func NewFeedbackUseCase(queue ports.FeedbackQueue, store ports.FeedbackStore) *FeedbackUseCase {
	return &FeedbackUseCase{
		queue: queue,
		store: store,
	}
}

func (uc *FeedbackUseCase) Submit(ctx context.Context, fb domain.Feedback) error {
	if strings.TrimSpace(fb.OrganizationID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit feedback", fmt.Errorf("organization_id is required"))
	}
	if strings.TrimSpace(fb.Query) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit feedback", fmt.Errorf("query is required"))
	}
	if !fb.Kind.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "submit feedback", fmt.Errorf("unsupported feedback kind: %s", fb.Kind))
	}
	if fb.Kind == domain.FeedbackCorrection && strings.TrimSpace(fb.Correction) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit feedback", fmt.Errorf("correction text is required"))
	}

	fb.ID = uuid.NewString()
	fb.CreatedAt = time.Now().UTC()

	if err := uc.queue.PublishFeedback(ctx, fb); err != nil {
		return fmt.Errorf("publish feedback: %w", err)
	}
	return nil
}

func (uc *FeedbackUseCase) Analytics(ctx context.Context, from, to time.Time) (*domain.FeedbackAnalytics, error) {
	if to.Before(from) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "feedback analytics", fmt.Errorf("time range is inverted"))
	}

	days, err := uc.store.ListDailyStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily stats: %w", err)
	}

	problematic, err := uc.store.ListProblematicQueries(ctx, problematicMinNegative, problematicMaxSuccessRate, problematicQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("list problematic queries: %w", err)
	}

	analytics := &domain.FeedbackAnalytics{
		From:        from,
		To:          to,
		Days:        days,
		Problematic: problematic,
	}
	positive := 0
	for _, day := range days {
		analytics.Total += day.Total
		positive += day.ThumbsUp
	}
	if analytics.Total > 0 {
		analytics.SuccessRate = float64(positive) / float64(analytics.Total)
	}
	return analytics, nil
}

// ProcessFeedbackUseCase is the worker side: it persists queued feedback and
// maintains the daily aggregates.
type ProcessFeedbackUseCase struct {
	store ports.FeedbackStore
}

func NewProcessFeedbackUseCase(store ports.FeedbackStore) *ProcessFeedbackUseCase {
	return &ProcessFeedbackUseCase{store: store}
}

func (uc *ProcessFeedbackUseCase) Process(ctx context.Context, fb domain.Feedback) error {
	if !fb.Kind.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "process feedback", fmt.Errorf("unsupported feedback kind: %s", fb.Kind))
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	if err := uc.store.Insert(ctx, &fb); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if err := uc.store.ApplyToDailyStats(ctx, fb); err != nil {
		return fmt.Errorf("apply daily stats: %w", err)
	}
	return nil
}
