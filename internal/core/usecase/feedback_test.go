package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

type feedbackQueueFake struct {
	published  []domain.Feedback
	publishErr error
}

func (f *feedbackQueueFake) PublishFeedback(_ context.Context, fb domain.Feedback) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, fb)
	return nil
}

func (f *feedbackQueueFake) SubscribeFeedback(context.Context, func(context.Context, domain.Feedback) error) error {
	return nil
}

type feedbackStoreFake struct {
	insertErr error
	statsErr  error
	days      []domain.FeedbackDailyStats
	daysErr   error
	queries   []domain.ProblematicQuery

	inserted     []domain.Feedback
	statsApplied []domain.Feedback
}

func (f *feedbackStoreFake) Insert(_ context.Context, fb *domain.Feedback) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *fb)
	return nil
}

func (f *feedbackStoreFake) ApplyToDailyStats(_ context.Context, fb domain.Feedback) error {
	if f.statsErr != nil {
		return f.statsErr
	}
	f.statsApplied = append(f.statsApplied, fb)
	return nil
}

func (f *feedbackStoreFake) ListDailyStats(context.Context, time.Time, time.Time) ([]domain.FeedbackDailyStats, error) {
	if f.daysErr != nil {
		return nil, f.daysErr
	}
	return f.days, nil
}

func (f *feedbackStoreFake) ListProblematicQueries(context.Context, int, float64, int) ([]domain.ProblematicQuery, error) {
	return f.queries, nil
}

func TestSubmitFeedbackPublishesWithGeneratedIdentity(t *testing.T) {
	queue := &feedbackQueueFake{}
	uc := NewFeedbackUseCase(queue, &feedbackStoreFake{})

	err := uc.Submit(context.Background(), domain.Feedback{
		OrganizationID: "org-1",
		Query:          "What is the refund window?",
		Response:       "The refund window is 30 days.",
		Kind:           domain.FeedbackThumbsUp,
		Confidence:     0.83,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(queue.published))
	}
	published := queue.published[0]
	if published.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if published.CreatedAt.IsZero() {
		t.Fatalf("expected a submission timestamp")
	}
	if published.Kind != domain.FeedbackThumbsUp {
		t.Fatalf("unexpected kind: %s", published.Kind)
	}
}

func TestSubmitFeedbackValidatesInput(t *testing.T) {
	queue := &feedbackQueueFake{}
	uc := NewFeedbackUseCase(queue, &feedbackStoreFake{})

	cases := []struct {
		name string
		fb   domain.Feedback
	}{
		{"missing organization", domain.Feedback{Query: "q", Kind: domain.FeedbackThumbsUp}},
		{"missing query", domain.Feedback{OrganizationID: "org-1", Kind: domain.FeedbackThumbsUp}},
		{"unknown kind", domain.Feedback{OrganizationID: "org-1", Query: "q", Kind: domain.FeedbackKind("meh")}},
		{"correction without text", domain.Feedback{OrganizationID: "org-1", Query: "q", Kind: domain.FeedbackCorrection}},
	}
	for _, tc := range cases {
		if err := uc.Submit(context.Background(), tc.fb); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected nothing published, got %d", len(queue.published))
	}
}

func TestSubmitFeedbackAcceptsCorrectionWithText(t *testing.T) {
	queue := &feedbackQueueFake{}
	uc := NewFeedbackUseCase(queue, &feedbackStoreFake{})

	err := uc.Submit(context.Background(), domain.Feedback{
		OrganizationID: "org-1",
		Query:          "What is the refund window?",
		Kind:           domain.FeedbackCorrection,
		Correction:     "The refund window is 14 days, not 30.",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(queue.published))
	}
}

func TestFeedbackAnalyticsAggregatesDays(t *testing.T) {
	day := func(offset, total, up int) domain.FeedbackDailyStats {
		return domain.FeedbackDailyStats{
			Day:      time.Date(2026, 8, 18+offset, 0, 0, 0, 0, time.UTC),
			Total:    total,
			ThumbsUp: up,
		}
	}
	store := &feedbackStoreFake{
		days: []domain.FeedbackDailyStats{day(0, 4, 3), day(1, 6, 2)},
		queries: []domain.ProblematicQuery{
			{Query: "how do i reset my password", Positive: 1, Negative: 3, SuccessRate: 0.25},
		},
	}
	uc := NewFeedbackUseCase(&feedbackQueueFake{}, store)

	from := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	analytics, err := uc.Analytics(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}

	if analytics.Total != 10 {
		t.Fatalf("expected total 10, got %d", analytics.Total)
	}
	if !closeTo(analytics.SuccessRate, 0.5) {
		t.Fatalf("expected success rate 0.5, got %v", analytics.SuccessRate)
	}
	if len(analytics.Days) != 2 || len(analytics.Problematic) != 1 {
		t.Fatalf("expected days and problematic queries carried through")
	}
}

func TestFeedbackAnalyticsRejectsInvertedRange(t *testing.T) {
	uc := NewFeedbackUseCase(&feedbackQueueFake{}, &feedbackStoreFake{})

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	if _, err := uc.Analytics(context.Background(), from, to); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProcessFeedbackPersistsAndAggregates(t *testing.T) {
	store := &feedbackStoreFake{}
	uc := NewProcessFeedbackUseCase(store)

	fb := domain.Feedback{
		ID:             "fb-1",
		OrganizationID: "org-1",
		Query:          "What is the refund window?",
		Kind:           domain.FeedbackThumbsDown,
		Confidence:     0.42,
		CreatedAt:      time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}
	if err := uc.Process(context.Background(), fb); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(store.inserted) != 1 || store.inserted[0].ID != "fb-1" {
		t.Fatalf("expected feedback inserted, got %+v", store.inserted)
	}
	if len(store.statsApplied) != 1 || store.statsApplied[0].Kind != domain.FeedbackThumbsDown {
		t.Fatalf("expected daily stats applied, got %+v", store.statsApplied)
	}
}

func TestProcessFeedbackFillsMissingIdentity(t *testing.T) {
	store := &feedbackStoreFake{}
	uc := NewProcessFeedbackUseCase(store)

	err := uc.Process(context.Background(), domain.Feedback{
		OrganizationID: "org-1",
		Query:          "q",
		Kind:           domain.FeedbackThumbsUp,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if store.inserted[0].ID == "" {
		t.Fatalf("expected a generated id")
	}
	if store.inserted[0].CreatedAt.IsZero() {
		t.Fatalf("expected a backfilled timestamp")
	}
}

func TestProcessFeedbackRejectsUnknownKind(t *testing.T) {
	store := &feedbackStoreFake{}
	uc := NewProcessFeedbackUseCase(store)

	err := uc.Process(context.Background(), domain.Feedback{Kind: domain.FeedbackKind("meh")})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected nothing inserted")
	}
}

func TestProcessFeedbackInsertFailureSkipsAggregation(t *testing.T) {
	store := &feedbackStoreFake{insertErr: errors.New("db down")}
	uc := NewProcessFeedbackUseCase(store)

	err := uc.Process(context.Background(), domain.Feedback{
		OrganizationID: "org-1",
		Query:          "q",
		Kind:           domain.FeedbackThumbsUp,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.statsApplied) != 0 {
		t.Fatalf("expected no aggregation after failed insert")
	}
}
