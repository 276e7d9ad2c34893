package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kazaneza/openchat/internal/core/domain"
)

func TestApplyToDailyStatsUpsertsThumbsUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewFeedbackRepository(db)
	fb := domain.Feedback{
		Kind:       domain.FeedbackThumbsUp,
		Confidence: 0.9,
		CreatedAt:  time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO feedback_daily_stats").
		WithArgs("2026-08-25", 1, 0, 0, 0.9, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ApplyToDailyStats(context.Background(), fb); err != nil {
		t.Fatalf("ApplyToDailyStats() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyToDailyStatsCountsCorrectionAsNegative(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewFeedbackRepository(db)
	fb := domain.Feedback{
		Kind:       domain.FeedbackCorrection,
		Confidence: 0.4,
		CreatedAt:  time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO feedback_daily_stats").
		WithArgs("2026-08-25", 0, 0, 1, 0.0, 0.4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ApplyToDailyStats(context.Background(), fb); err != nil {
		t.Fatalf("ApplyToDailyStats() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDailyStatsComputesDerivedRates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewFeedbackRepository(db)
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"day", "total", "thumbs_up", "thumbs_down", "corrections", "confidence_positive_sum", "confidence_negative_sum"}).
		AddRow(day, 4, 2, 1, 1, 1.5, 0.5)

	mock.ExpectQuery("FROM feedback_daily_stats").
		WithArgs("2026-08-18", "2026-08-25").
		WillReturnRows(rows)

	stats, err := repo.ListDailyStats(context.Background(),
		time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListDailyStats() error = %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 day, got %d", len(stats))
	}
	got := stats[0]
	if got.AvgConfidencePos != 0.75 {
		t.Fatalf("expected positive avg 0.75, got %v", got.AvgConfidencePos)
	}
	if got.AvgConfidenceNeg != 0.25 {
		t.Fatalf("expected negative avg 0.25, got %v", got.AvgConfidenceNeg)
	}
	if got.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", got.SuccessRate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListProblematicQueriesComputesSuccessRate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewFeedbackRepository(db)
	rows := sqlmock.NewRows([]string{"query", "positive", "negative"}).
		AddRow("how do i reset my password", 1, 3).
		AddRow("what is the refund window", 0, 2)

	mock.ExpectQuery("FROM feedback").
		WithArgs(2, 0.5, 20).
		WillReturnRows(rows)

	problematic, err := repo.ListProblematicQueries(context.Background(), 2, 0.5, 20)
	if err != nil {
		t.Fatalf("ListProblematicQueries() error = %v", err)
	}
	if len(problematic) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(problematic))
	}
	if problematic[0].SuccessRate != 0.25 {
		t.Fatalf("expected success rate 0.25, got %v", problematic[0].SuccessRate)
	}
	if problematic[1].SuccessRate != 0 {
		t.Fatalf("expected success rate 0, got %v", problematic[1].SuccessRate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
