package domain

import (
	"context"
	"time"
)

// RunOptions are the optional manual overrides for a scheduler run.
type RunOptions struct {
	// EventID limits the run to a single event.
	EventID string
	// ReminderLeadHours overrides the configured set of reminder lead times.
	ReminderLeadHours int
}

// RunSummary aggregates the outcome of one scheduler invocation.
// swagger:model RunSummary
type RunSummary struct {
	EventsChecked    int            `json:"events_checked"`
	RemindersSent    int            `json:"reminders_sent"`
	RemindersFailed  int            `json:"reminders_failed"`
	RemindersSkipped int            `json:"reminders_skipped"`
	FollowUpsSent    int            `json:"followups_sent"`
	FollowUpsFailed  int            `json:"followups_failed"`
	FollowUpsSkipped int            `json:"followups_skipped"`
	RateLimit        RateLimitUsage `json:"rate_limit"`
	StartedAt        time.Time      `json:"started_at"`
	DurationMillis   int64          `json:"duration_ms"`
}

// EngagementScheduler finds attendees due a reminder or follow-up and sends at
// most one email per (attendee, event, notification type).
type EngagementScheduler interface {
	Run(ctx context.Context, opts RunOptions) (*RunSummary, error)
}

// NotificationService sends a single on-demand reminder to one attendee.
type NotificationService interface {
	// SendSingle claims the log row and sends a fixed-template email. Returns
	// the email log ID on success.
	SendSingle(ctx context.Context, attendeeID, eventID string, postEvent bool, customMessage string) (emailID string, err error)
}
