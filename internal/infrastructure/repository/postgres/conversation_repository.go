package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) EnsureConversation(ctx context.Context, organizationID, conversationID string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversations (organization_id, conversation_id, current_user_turn, created_at, updated_at)
VALUES ($1, $2, 0, $3, $3)
ON CONFLICT (organization_id, conversation_id) DO NOTHING
`, organizationID, conversationID, now)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation insert: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
SELECT organization_id, conversation_id, current_user_turn, created_at, updated_at
FROM conversations
WHERE organization_id = $1 AND conversation_id = $2
`, organizationID, conversationID)

	var conv domain.Conversation
	if err := row.Scan(
		&conv.OrganizationID,
		&conv.ID,
		&conv.CurrentUserTurn,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("ensure conversation select: %w", err)
	}
	return &conv, nil
}

// NextUserTurn allocates turn numbers through a single UPDATE..RETURNING so
// concurrent requests on one conversation never observe the same value.
func (r *ConversationRepository) NextUserTurn(ctx context.Context, organizationID, conversationID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE conversations
SET current_user_turn = current_user_turn + 1, updated_at = $3
WHERE organization_id = $1 AND conversation_id = $2
RETURNING current_user_turn
`, organizationID, conversationID, time.Now().UTC())

	var currentTurn int
	if err := row.Scan(&currentTurn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, ensureErr := r.EnsureConversation(ctx, organizationID, conversationID); ensureErr != nil {
				return 0, ensureErr
			}
			return r.NextUserTurn(ctx, organizationID, conversationID)
		}
		return 0, fmt.Errorf("next user turn: %w", err)
	}
	return currentTurn, nil
}

func (r *ConversationRepository) AppendTurn(ctx context.Context, turn domain.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	metadataJSON := []byte("{}")
	if len(turn.Metadata) > 0 {
		raw, err := json.Marshal(turn.Metadata)
		if err != nil {
			return fmt.Errorf("marshal turn metadata: %w", err)
		}
		metadataJSON = raw
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversation_turns (id, organization_id, conversation_id, user_turn, role, content, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, turn.ID, turn.OrganizationID, turn.ConversationID, turn.UserTurn, turn.Role, turn.Content, metadataJSON, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListRecentTurns(ctx context.Context, organizationID, conversationID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, organization_id, conversation_id, user_turn, role, content, metadata, created_at
FROM conversation_turns
WHERE organization_id = $1 AND conversation_id = $2
ORDER BY user_turn DESC, created_at DESC
LIMIT $3
`, organizationID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	defer rows.Close()

	out, err := scanTurns(rows, limit)
	if err != nil {
		return nil, err
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *ConversationRepository) ListTurnRange(ctx context.Context, organizationID, conversationID string, turnFrom, turnTo int) ([]domain.Turn, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, organization_id, conversation_id, user_turn, role, content, metadata, created_at
FROM conversation_turns
WHERE organization_id = $1 AND conversation_id = $2 AND user_turn >= $3 AND user_turn <= $4
ORDER BY user_turn ASC, created_at ASC
`, organizationID, conversationID, turnFrom, turnTo)
	if err != nil {
		return nil, fmt.Errorf("list turn range: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows, 0)
}

func (r *ConversationRepository) LatestSummary(ctx context.Context, organizationID, conversationID string) (*domain.ConversationSummary, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, organization_id, conversation_id, turn_from, turn_to, summary, created_at
FROM conversation_summaries
WHERE organization_id = $1 AND conversation_id = $2
ORDER BY turn_to DESC
LIMIT 1
`, organizationID, conversationID)

	var summary domain.ConversationSummary
	if err := row.Scan(
		&summary.ID,
		&summary.OrganizationID,
		&summary.ConversationID,
		&summary.TurnFrom,
		&summary.TurnTo,
		&summary.Summary,
		&summary.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest summary: %w", err)
	}
	return &summary, nil
}

func (r *ConversationRepository) SaveSummary(ctx context.Context, summary *domain.ConversationSummary) error {
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversation_summaries (id, organization_id, conversation_id, turn_from, turn_to, summary, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, summary.ID, summary.OrganizationID, summary.ConversationID, summary.TurnFrom, summary.TurnTo, summary.Summary, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// DeleteConversationsBefore removes conversations idle since before cutoff,
// together with their turns and summaries.
func (r *ConversationRepository) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin retention tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM conversation_turns
WHERE (organization_id, conversation_id) IN (
	SELECT organization_id, conversation_id FROM conversations WHERE updated_at < $1
)
`, cutoff); err != nil {
		return 0, fmt.Errorf("delete expired turns: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM conversation_summaries
WHERE (organization_id, conversation_id) IN (
	SELECT organization_id, conversation_id FROM conversations WHERE updated_at < $1
)
`, cutoff); err != nil {
		return 0, fmt.Errorf("delete expired summaries: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired conversations: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired conversations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit retention tx: %w", err)
	}
	return deleted, nil
}

func scanTurns(rows *sql.Rows, sizeHint int) ([]domain.Turn, error) {
	out := make([]domain.Turn, 0, sizeHint)
	for rows.Next() {
		var turn domain.Turn
		var metadataRaw []byte
		if err := rows.Scan(
			&turn.ID,
			&turn.OrganizationID,
			&turn.ConversationID,
			&turn.UserTurn,
			&turn.Role,
			&turn.Content,
			&metadataRaw,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &turn.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal turn metadata: %w", err)
			}
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}
