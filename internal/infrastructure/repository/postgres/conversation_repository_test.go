package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNextUserTurnEnsuresConversationWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE conversations").
		WithArgs("org-1", "c-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"current_user_turn"}))
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("org-1", "c-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT organization_id, conversation_id").
		WithArgs("org-1", "c-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id", "conversation_id", "current_user_turn", "created_at", "updated_at"}).
			AddRow("org-1", "c-1", 0, now, now))
	mock.ExpectQuery("UPDATE conversations").
		WithArgs("org-1", "c-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"current_user_turn"}).AddRow(1))

	turn, err := repo.NextUserTurn(context.Background(), "org-1", "c-1")
	if err != nil {
		t.Fatalf("NextUserTurn() error = %v", err)
	}
	if turn != 1 {
		t.Fatalf("expected turn 1, got %d", turn)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentTurnsReturnsChronologicalOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "conversation_id", "user_turn", "role", "content", "metadata", "created_at"}).
		AddRow("t-2", "org-1", "c-1", 2, "user", "second question", []byte(`{}`), now).
		AddRow("t-1", "org-1", "c-1", 1, "user", "first question", []byte(`{"intent":"factual"}`), now.Add(-time.Minute))

	mock.ExpectQuery("FROM conversation_turns").
		WithArgs("org-1", "c-1", 10).
		WillReturnRows(rows)

	turns, err := repo.ListRecentTurns(context.Background(), "org-1", "c-1", 10)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].ID != "t-1" || turns[1].ID != "t-2" {
		t.Fatalf("expected chronological order, got %q then %q", turns[0].ID, turns[1].ID)
	}
	if turns[0].Metadata["intent"] != "factual" {
		t.Fatalf("expected metadata to round-trip, got %v", turns[0].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestSummaryReturnsNilWhenAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	mock.ExpectQuery("FROM conversation_summaries").
		WithArgs("org-1", "c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "conversation_id", "turn_from", "turn_to", "summary", "created_at"}))

	summary, err := repo.LatestSummary(context.Background(), "org-1", "c-1")
	if err != nil {
		t.Fatalf("LatestSummary() error = %v", err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary, got %+v", summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteConversationsBeforeRemovesChildren(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM conversation_turns").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM conversation_summaries").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM conversations").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	removed, err := repo.DeleteConversationsBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteConversationsBefore() error = %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 conversations removed, got %d", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
