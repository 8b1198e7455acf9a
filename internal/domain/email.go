package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ReminderEmailData holds data for the pre-event reminder email.
type ReminderEmailData struct {
	Email      string
	Name       string
	EventTitle string
	EventTime  time.Time
	LeadHours  int
	// Personal is an optional generated paragraph; empty renders the static template.
	Personal string
}

// FollowUpEmailData holds data for the post-event follow-up email.
type FollowUpEmailData struct {
	Email      string
	Name       string
	EventTitle string
	Attended   bool
	Personal   string
}

// ManualEmailData holds data for the on-demand single reminder email.
type ManualEmailData struct {
	Email         string
	Name          string
	EventTitle    string
	EventTime     time.Time
	PostEvent     bool
	CustomMessage string
}

// EmailService defines the contract for sending domain-level emails.
// Each method returns the rendered subject so callers can record it.
type EmailService interface {
	SendReminder(ctx context.Context, data *ReminderEmailData) (subject string, err error)
	SendFollowUp(ctx context.Context, data *FollowUpEmailData) (subject string, err error)
	SendManualReminder(ctx context.Context, data *ManualEmailData) (subject string, err error)
}
