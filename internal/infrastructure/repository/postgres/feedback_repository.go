package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Insert(ctx context.Context, fb *domain.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback (id, organization_id, conversation_id, query, response, kind, rating, correction, confidence, intent, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		fb.ID, fb.OrganizationID, nullableString(fb.ConversationID), fb.Query, fb.Response,
		string(fb.Kind), fb.Rating, nullableString(fb.Correction), fb.Confidence, nullableString(string(fb.Intent)), fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) ApplyToDailyStats(ctx context.Context, fb domain.Feedback) error {
	var thumbsUp, thumbsDown, corrections int
	var positiveSum, negativeSum float64
	switch fb.Kind {
	case domain.FeedbackThumbsUp:
		thumbsUp = 1
		positiveSum = fb.Confidence
	case domain.FeedbackThumbsDown:
		thumbsDown = 1
		negativeSum = fb.Confidence
	case domain.FeedbackCorrection:
		corrections = 1
		negativeSum = fb.Confidence
	default:
		return fmt.Errorf("unsupported feedback kind: %s", fb.Kind)
	}

	day := fb.CreatedAt.UTC().Format("2006-01-02")
	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback_daily_stats (day, total, thumbs_up, thumbs_down, corrections, confidence_positive_sum, confidence_negative_sum)
VALUES ($1, 1, $2, $3, $4, $5, $6)
ON CONFLICT (day) DO UPDATE SET
	total = feedback_daily_stats.total + 1,
	thumbs_up = feedback_daily_stats.thumbs_up + EXCLUDED.thumbs_up,
	thumbs_down = feedback_daily_stats.thumbs_down + EXCLUDED.thumbs_down,
	corrections = feedback_daily_stats.corrections + EXCLUDED.corrections,
	confidence_positive_sum = feedback_daily_stats.confidence_positive_sum + EXCLUDED.confidence_positive_sum,
	confidence_negative_sum = feedback_daily_stats.confidence_negative_sum + EXCLUDED.confidence_negative_sum
`, day, thumbsUp, thumbsDown, corrections, positiveSum, negativeSum)
	if err != nil {
		return fmt.Errorf("apply daily stats: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) ListDailyStats(ctx context.Context, from, to time.Time) ([]domain.FeedbackDailyStats, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT day, total, thumbs_up, thumbs_down, corrections, confidence_positive_sum, confidence_negative_sum
FROM feedback_daily_stats
WHERE day >= $1 AND day <= $2
ORDER BY day ASC
`, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list daily stats: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FeedbackDailyStats, 0)
	for rows.Next() {
		var day domain.FeedbackDailyStats
		var positiveSum, negativeSum float64
		if err := rows.Scan(
			&day.Day,
			&day.Total,
			&day.ThumbsUp,
			&day.ThumbsDown,
			&day.Corrections,
			&positiveSum,
			&negativeSum,
		); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		if day.ThumbsUp > 0 {
			day.AvgConfidencePos = positiveSum / float64(day.ThumbsUp)
		}
		if negatives := day.ThumbsDown + day.Corrections; negatives > 0 {
			day.AvgConfidenceNeg = negativeSum / float64(negatives)
		}
		if day.Total > 0 {
			day.SuccessRate = float64(day.ThumbsUp) / float64(day.Total)
		}
		out = append(out, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return out, nil
}

func (r *FeedbackRepository) ListProblematicQueries(ctx context.Context, minNegative int, maxSuccessRate float64, limit int) ([]domain.ProblematicQuery, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT query,
	COUNT(*) FILTER (WHERE kind = 'thumbs_up') AS positive,
	COUNT(*) FILTER (WHERE kind IN ('thumbs_down', 'correction')) AS negative
FROM feedback
GROUP BY query
HAVING COUNT(*) FILTER (WHERE kind IN ('thumbs_down', 'correction')) >= $1
	AND COALESCE(COUNT(*) FILTER (WHERE kind = 'thumbs_up')::float / NULLIF(COUNT(*), 0), 0) <= $2
ORDER BY negative DESC, query ASC
LIMIT $3
`, minNegative, maxSuccessRate, limit)
	if err != nil {
		return nil, fmt.Errorf("list problematic queries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProblematicQuery, 0, limit)
	for rows.Next() {
		var q domain.ProblematicQuery
		if err := rows.Scan(&q.Query, &q.Positive, &q.Negative); err != nil {
			return nil, fmt.Errorf("scan problematic query: %w", err)
		}
		if total := q.Positive + q.Negative; total > 0 {
			q.SuccessRate = float64(q.Positive) / float64(total)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate problematic queries: %w", err)
	}
	return out, nil
}
