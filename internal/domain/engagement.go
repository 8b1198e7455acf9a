package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Engagement types written by the scheduler.
const (
	EngagementReminderSent = "reminder_sent"
	EngagementFollowUpSent = "followup_sent"
)

// EngagementRecord is an append-only record of attendee activity.
// swagger:model EngagementRecord
type EngagementRecord struct {
	ID             string          `json:"id"`
	AttendeeID     string          `json:"attendee_id"`
	EventID        string          `json:"event_id"`
	EngagementType string          `json:"engagement_type"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EngagementRepository defines storage operations for engagement records.
// Records are never updated or deleted.
type EngagementRepository interface {
	Append(ctx context.Context, record *EngagementRecord) error
	// ListRecentByAttendeeID returns the newest records first, at most limit.
	ListRecentByAttendeeID(ctx context.Context, attendeeID string, limit int) ([]*EngagementRecord, error)
}
