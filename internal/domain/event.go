package domain

import (
	"context"
	"time"
)

// Event statuses. Transitions are manual (dashboard edits), never automated.
const (
	EventStatusUpcoming  = "upcoming"
	EventStatusLive      = "live"
	EventStatusCompleted = "completed"
)

// Event represents a webinar event owned by a dashboard user.
// swagger:model Event
type Event struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	Title             string    `json:"title"`
	Description       *string   `json:"description"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Status            string    `json:"status"`
	AttendeeCount     int       `json:"attendee_count"`
	RegistrationCount int       `json:"registration_count"`
	EngagementCount   int       `json:"engagement_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(ownerID, title string, description *string, scheduledAt time.Time, createdAt, updatedAt time.Time) *Event {
	return &Event{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		ScheduledAt: scheduledAt,
		Status:      EventStatusUpcoming,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// ValidEventStatus reports whether s is one of the known event statuses.
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusUpcoming, EventStatusLive, EventStatusCompleted:
		return true
	}
	return false
}

// EventRepository defines storage operations for events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	// Update applies the non-nil fields and returns the updated row.
	Update(ctx context.Context, eventID string, title, description *string, scheduledAt *time.Time, status *string) (*Event, error)
	Delete(ctx context.Context, id string) error
	// ListUpcomingWithin returns events with status "upcoming" scheduled between
	// now and now+within. When eventID is non-empty the result is filtered to
	// that single event.
	ListUpcomingWithin(ctx context.Context, within time.Duration, eventID string) ([]*Event, error)
	// ListCompletedSince returns events with status "completed" scheduled
	// between now-lookback and now. When eventID is non-empty the result is
	// filtered to that single event.
	ListCompletedSince(ctx context.Context, lookback time.Duration, eventID string) ([]*Event, error)
}

// EventService defines owner-facing event operations for the dashboard.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID, callerID string) (*Event, error)
	ListEvents(ctx context.Context, ownerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, eventID, callerID string, title, description *string, scheduledAt *time.Time, status *string) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, callerID string) error
}
