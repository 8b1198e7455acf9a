package domain

import (
	"context"
	"time"
)

// Email types logged by the scheduler and the on-demand endpoint.
const (
	EmailTypeReminder       = "pre_event_reminder"
	EmailTypeFollowUp       = "post_event_followup"
	EmailTypeManual         = "manual_reminder"
	EmailTypeManualFollowUp = "manual_followup"
)

// Email log statuses. A row is claimed as "pending" before the send is
// attempted, then finalized to "sent" or "failed".
const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// EmailLog records one notification per (attendee, event, email type). The
// triple is unique in storage, which makes the existence of a row the
// idempotency guard against resending.
// swagger:model EmailLog
type EmailLog struct {
	ID         string    `json:"id"`
	AttendeeID string    `json:"attendee_id"`
	EventID    string    `json:"event_id"`
	EmailType  string    `json:"email_type"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
}

// EmailLogRepository defines storage operations for email logs.
type EmailLogRepository interface {
	// Claim atomically inserts the log row if no row exists yet for the
	// (attendee, event, email type) triple. It returns true and sets log.ID
	// when the row was claimed, false when another row already holds the
	// triple. Sends must only happen after a successful claim.
	Claim(ctx context.Context, log *EmailLog) (bool, error)
	// Finalize sets the subject and final status of a claimed row.
	Finalize(ctx context.Context, id, subject, status string) error
	ListByEventID(ctx context.Context, eventID string) ([]*EmailLog, error)
}
