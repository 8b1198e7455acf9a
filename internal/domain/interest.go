package domain

import (
	"context"
	"encoding/json"
)

// InterestRecord holds an attendee's stated interests and preferences.
// At most one record exists per attendee.
// swagger:model InterestRecord
type InterestRecord struct {
	ID          string          `json:"id"`
	AttendeeID  string          `json:"attendee_id"`
	Interests   json.RawMessage `json:"interests"`
	Preferences json.RawMessage `json:"preferences"`
}

// InterestRepository defines storage operations for interest records.
type InterestRepository interface {
	// Upsert inserts or replaces the single record for the attendee.
	Upsert(ctx context.Context, record *InterestRecord) error
	GetByAttendeeID(ctx context.Context, attendeeID string) (*InterestRecord, error)
}
