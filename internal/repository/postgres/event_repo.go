package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

const eventColumns = `id, owner_id, title, description, scheduled_at, status,
		attendee_count, registration_count, engagement_count, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull sql.NullString
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &descNull, &e.ScheduledAt, &e.Status,
		&e.AttendeeCount, &e.RegistrationCount, &e.EngagementCount,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (owner_id, title, description, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OwnerID, e.Title, e.Description, e.ScheduledAt, e.Status, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY scheduled_at DESC`
	return r.queryEvents(ctx, query, ownerID)
}

func (r *eventRepository) Update(ctx context.Context, eventID string, title, description *string, scheduledAt *time.Time, status *string) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	if title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", n))
		args = append(args, *title)
		n++
	}
	if description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", n))
		args = append(args, *description)
		n++
	}
	if scheduledAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("scheduled_at = $%d", n))
		args = append(args, *scheduledAt)
		n++
	}
	if status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", n))
		args = append(args, *status)
		n++
	}
	if n == 1 {
		return r.GetByID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING `+eventColumns, strings.Join(setClauses, ", "), n)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) ListUpcomingWithin(ctx context.Context, within time.Duration, eventID string) ([]*domain.Event, error) {
	horizon := time.Now().Add(within)
	if eventID != "" {
		query := `
			SELECT ` + eventColumns + ` FROM events
			WHERE status = 'upcoming' AND scheduled_at <= $1 AND id = $2
			ORDER BY scheduled_at ASC
		`
		return r.queryEvents(ctx, query, horizon, eventID)
	}
	query := `
		SELECT ` + eventColumns + ` FROM events
		WHERE status = 'upcoming' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
	`
	return r.queryEvents(ctx, query, horizon)
}

func (r *eventRepository) ListCompletedSince(ctx context.Context, lookback time.Duration, eventID string) ([]*domain.Event, error) {
	cutoff := time.Now().Add(-lookback)
	if eventID != "" {
		query := `
			SELECT ` + eventColumns + ` FROM events
			WHERE status = 'completed' AND scheduled_at >= $1 AND id = $2
			ORDER BY scheduled_at DESC
		`
		return r.queryEvents(ctx, query, cutoff, eventID)
	}
	query := `
		SELECT ` + eventColumns + ` FROM events
		WHERE status = 'completed' AND scheduled_at >= $1
		ORDER BY scheduled_at DESC
	`
	return r.queryEvents(ctx, query, cutoff)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
