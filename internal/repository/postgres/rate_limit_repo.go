package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type rateLimitRepository struct {
	DB *sql.DB
}

func NewRateLimitRepository(db *sql.DB) domain.RateLimitRepository {
	return &rateLimitRepository{
		DB: db,
	}
}

func (r *rateLimitRepository) CountSince(ctx context.Context, userID, actionType string, since time.Time) (int, error) {
	var count int
	if userID == "" {
		query := `SELECT COUNT(*) FROM rate_limits WHERE action_type = $1 AND created_at >= $2`
		if err := r.DB.QueryRowContext(ctx, query, actionType, since).Scan(&count); err != nil {
			return 0, err
		}
		return count, nil
	}
	query := `SELECT COUNT(*) FROM rate_limits WHERE user_id = $1 AND action_type = $2 AND created_at >= $3`
	if err := r.DB.QueryRowContext(ctx, query, userID, actionType, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *rateLimitRepository) Record(ctx context.Context, rec *domain.RateLimitRecord) error {
	metadata := rec.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	query := `
		INSERT INTO rate_limits (user_id, action_type, metadata, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, rec.UserID, rec.ActionType, []byte(metadata), rec.CreatedAt).Scan(&rec.ID)
}

func (r *rateLimitRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM rate_limits WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
