package postgres

import (
	"context"
	"database/sql"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type engagementRepository struct {
	DB *sql.DB
}

func NewEngagementRepository(db *sql.DB) domain.EngagementRepository {
	return &engagementRepository{
		DB: db,
	}
}

func (r *engagementRepository) Append(ctx context.Context, rec *domain.EngagementRecord) error {
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	query := `
		INSERT INTO engagement_records (attendee_id, event_id, engagement_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		rec.AttendeeID, rec.EventID, rec.EngagementType, []byte(payload), rec.CreatedAt,
	).Scan(&rec.ID)
}

func (r *engagementRepository) ListRecentByAttendeeID(ctx context.Context, attendeeID string, limit int) ([]*domain.EngagementRecord, error) {
	query := `
		SELECT id, attendee_id, event_id, engagement_type, payload, created_at
		FROM engagement_records
		WHERE attendee_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, attendeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]*domain.EngagementRecord, 0)
	for rows.Next() {
		rec := &domain.EngagementRecord{}
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.AttendeeID, &rec.EventID, &rec.EngagementType, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	return records, rows.Err()
}
