package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

const attendeeColumns = `id, event_id, email, name, registered_at, attended`

type attendeeRepository struct {
	DB *sql.DB
}

func NewAttendeeRepository(db *sql.DB) domain.AttendeeRepository {
	return &attendeeRepository{
		DB: db,
	}
}

func scanAttendee(row interface{ Scan(...any) error }) (*domain.Attendee, error) {
	a := &domain.Attendee{}
	var nameNull sql.NullString
	var attendedNull sql.NullBool
	if err := row.Scan(&a.ID, &a.EventID, &a.Email, &nameNull, &a.RegisteredAt, &attendedNull); err != nil {
		return nil, err
	}
	if nameNull.Valid {
		a.Name = &nameNull.String
	}
	if attendedNull.Valid {
		a.Attended = &attendedNull.Bool
	}
	return a, nil
}

func (r *attendeeRepository) Create(ctx context.Context, a *domain.Attendee) error {
	query := `
		INSERT INTO attendees (event_id, email, name, registered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, a.EventID, a.Email, a.Name, a.RegisteredAt).Scan(&a.ID)
}

func (r *attendeeRepository) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE id = $1`
	a, err := scanAttendee(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *attendeeRepository) GetByEventAndEmail(ctx context.Context, eventID, email string) (*domain.Attendee, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1 AND email = $2`
	a, err := scanAttendee(r.DB.QueryRowContext(ctx, query, eventID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *attendeeRepository) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Attendee, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendees WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT ` + attendeeColumns + ` FROM attendees
		WHERE event_id = $1
		ORDER BY registered_at ASC
		LIMIT $2 OFFSET $3
	`
	attendees, err := r.queryAttendees(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return attendees, total, nil
}

func (r *attendeeRepository) ListAllByEventID(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	query := `
		SELECT ` + attendeeColumns + ` FROM attendees
		WHERE event_id = $1
		ORDER BY registered_at ASC
	`
	return r.queryAttendees(ctx, query, eventID)
}

func (r *attendeeRepository) SetAttended(ctx context.Context, id string, attended bool) (*domain.Attendee, error) {
	query := `
		UPDATE attendees SET attended = $1
		WHERE id = $2
		RETURNING ` + attendeeColumns
	a, err := scanAttendee(r.DB.QueryRowContext(ctx, query, attended, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *attendeeRepository) queryAttendees(ctx context.Context, query string, args ...any) ([]*domain.Attendee, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	attendees := make([]*domain.Attendee, 0)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}
