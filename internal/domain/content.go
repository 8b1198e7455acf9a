package domain

import "context"

// ContentGenerator is the port to a hosted chat-completion API. Complete turns
// a prompt into a short paragraph of plain text.
type ContentGenerator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ContentService produces personalized email paragraphs. An empty string with
// a nil error means generation was unavailable (cap exhausted or retries spent)
// and the caller must skip the email rather than send unpersonalized content.
type ContentService interface {
	ReminderParagraph(ctx context.Context, event *Event, attendee *Attendee, leadHours int) (string, error)
	FollowUpParagraph(ctx context.Context, event *Event, attendee *Attendee, attended bool) (string, error)
}
