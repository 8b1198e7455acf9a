package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type interestRepository struct {
	DB *sql.DB
}

func NewInterestRepository(db *sql.DB) domain.InterestRepository {
	return &interestRepository{
		DB: db,
	}
}

func (r *interestRepository) Upsert(ctx context.Context, rec *domain.InterestRecord) error {
	interests := rec.Interests
	if len(interests) == 0 {
		interests = []byte("{}")
	}
	preferences := rec.Preferences
	if len(preferences) == 0 {
		preferences = []byte("{}")
	}
	query := `
		INSERT INTO interest_records (attendee_id, interests, preferences)
		VALUES ($1, $2, $3)
		ON CONFLICT (attendee_id) DO UPDATE
		SET interests = EXCLUDED.interests, preferences = EXCLUDED.preferences
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, rec.AttendeeID, []byte(interests), []byte(preferences)).Scan(&rec.ID)
}

func (r *interestRepository) GetByAttendeeID(ctx context.Context, attendeeID string) (*domain.InterestRecord, error) {
	query := `
		SELECT id, attendee_id, interests, preferences
		FROM interest_records
		WHERE attendee_id = $1
	`
	rec := &domain.InterestRecord{}
	var interests, preferences []byte
	err := r.DB.QueryRowContext(ctx, query, attendeeID).Scan(&rec.ID, &rec.AttendeeID, &interests, &preferences)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	rec.Interests = interests
	rec.Preferences = preferences
	return rec, nil
}
