package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type emailLogRepository struct {
	DB *sql.DB
}

func NewEmailLogRepository(db *sql.DB) domain.EmailLogRepository {
	return &emailLogRepository{
		DB: db,
	}
}

// Claim relies on the UNIQUE (attendee_id, event_id, email_type) constraint:
// ON CONFLICT DO NOTHING returns no row when the triple is already taken, so
// only one caller ever wins the claim.
func (r *emailLogRepository) Claim(ctx context.Context, log *domain.EmailLog) (bool, error) {
	query := `
		INSERT INTO email_logs (attendee_id, event_id, email_type, subject, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (attendee_id, event_id, email_type) DO NOTHING
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		log.AttendeeID, log.EventID, log.EmailType, log.Subject, log.Status, log.SentAt,
	).Scan(&log.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *emailLogRepository) Finalize(ctx context.Context, id, subject, status string) error {
	query := `UPDATE email_logs SET subject = $1, status = $2, sent_at = NOW() WHERE id = $3`
	result, err := r.DB.ExecContext(ctx, query, subject, status, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *emailLogRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EmailLog, error) {
	query := `
		SELECT id, attendee_id, event_id, email_type, subject, status, sent_at
		FROM email_logs
		WHERE event_id = $1
		ORDER BY sent_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]*domain.EmailLog, 0)
	for rows.Next() {
		l := &domain.EmailLog{}
		if err := rows.Scan(&l.ID, &l.AttendeeID, &l.EventID, &l.EmailType, &l.Subject, &l.Status, &l.SentAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
