package services

import (
	"context"
	"fmt"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendReminder sends the pre-event reminder using the "reminder" template.
func (s *emailService) SendReminder(ctx context.Context, data *domain.ReminderEmailData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("reminder email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("reminder", data)
	if err != nil {
		return "", fmt.Errorf("failed to render reminder template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return "", fmt.Errorf("failed to send reminder email: %w", err)
	}
	return subject, nil
}

// SendFollowUp sends the post-event follow-up. Wording branches on whether the
// attendee actually showed up.
func (s *emailService) SendFollowUp(ctx context.Context, data *domain.FollowUpEmailData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("follow-up email data is nil")
	}
	templateName := "followup_missed"
	if data.Attended {
		templateName = "followup_attended"
	}
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return "", fmt.Errorf("failed to send follow-up email: %w", err)
	}
	return subject, nil
}

// SendManualReminder sends the on-demand single reminder using the "manual" template.
func (s *emailService) SendManualReminder(ctx context.Context, data *domain.ManualEmailData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("manual email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("manual", data)
	if err != nil {
		return "", fmt.Errorf("failed to render manual template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return "", fmt.Errorf("failed to send manual email: %w", err)
	}
	return subject, nil
}
