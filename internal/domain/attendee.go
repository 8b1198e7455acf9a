package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Attendee represents a person registered for an event.
// swagger:model Attendee
type Attendee struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
	Attended     *bool     `json:"attended"`
}

// NewAttendee returns a new Attendee. ID is typically set by the repository on create.
func NewAttendee(eventID, email string, name *string, registeredAt time.Time) *Attendee {
	return &Attendee{
		EventID:      eventID,
		Email:        email,
		Name:         name,
		RegisteredAt: registeredAt,
	}
}

// DisplayName returns the attendee's name, falling back to the local part of
// the email address.
func (a *Attendee) DisplayName() string {
	if a.Name != nil && *a.Name != "" {
		return *a.Name
	}
	for i, r := range a.Email {
		if r == '@' {
			return a.Email[:i]
		}
	}
	return a.Email
}

// AttendeeRepository defines storage operations for attendees.
type AttendeeRepository interface {
	Create(ctx context.Context, attendee *Attendee) error
	GetByID(ctx context.Context, id string) (*Attendee, error)
	GetByEventAndEmail(ctx context.Context, eventID, email string) (*Attendee, error)
	// ListByEventID returns one page of attendees plus the total count.
	ListByEventID(ctx context.Context, eventID string, params PaginationParams) ([]*Attendee, int, error)
	// ListAllByEventID returns every attendee of the event, for scheduler fan-out.
	ListAllByEventID(ctx context.Context, eventID string) ([]*Attendee, error)
	SetAttended(ctx context.Context, id string, attended bool) (*Attendee, error)
}

// AttendeeService defines attendee-facing operations such as event registration.
type AttendeeService interface {
	// Register registers an email address for the event. Returns (attendee,
	// created, err): created is false when the email was already registered.
	Register(ctx context.Context, eventID, email string, name *string) (*Attendee, bool, error)
	ListAttendees(ctx context.Context, eventID, callerID string, params PaginationParams) ([]*Attendee, int, error)
	SetAttended(ctx context.Context, eventID, attendeeID, callerID string, attended bool) (*Attendee, error)
	UpsertInterests(ctx context.Context, eventID, attendeeID, callerID string, interests, preferences json.RawMessage) (*InterestRecord, error)
}
