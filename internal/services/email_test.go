package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"

	"github.com/stretchr/testify/require"
)

// fakeRenderer returns canned output and records the template it was asked for.
type fakeRenderer struct {
	lastTemplate string
	err          error
}

func (f *fakeRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	f.lastTemplate = templateName
	if f.err != nil {
		return "", "", "", f.err
	}
	return "Subject: " + templateName, "<p>hi</p>", "hi", nil
}

type sentMail struct {
	to, subject, htmlBody, textBody string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(to, subject, htmlBody, textBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, htmlBody, textBody})
	return nil
}

func TestEmailService_SendReminder(t *testing.T) {
	renderer := &fakeRenderer{}
	mailer := &fakeMailer{}
	svc := NewEmailService(mailer, renderer)

	subject, err := svc.SendReminder(context.Background(), &domain.ReminderEmailData{
		Email:      "ada@example.com",
		Name:       "Ada",
		EventTitle: "Go Webinar",
		EventTime:  time.Now().Add(24 * time.Hour),
		LeadHours:  24,
	})
	require.NoError(t, err)
	require.Equal(t, "reminder", renderer.lastTemplate)
	require.Equal(t, "Subject: reminder", subject)
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "ada@example.com", mailer.sent[0].to)
}

func TestEmailService_SendFollowUp_TemplateBranchesOnAttendance(t *testing.T) {
	tests := []struct {
		name         string
		attended     bool
		wantTemplate string
	}{
		{"attended", true, "followup_attended"},
		{"missed", false, "followup_missed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{}
			mailer := &fakeMailer{}
			svc := NewEmailService(mailer, renderer)

			_, err := svc.SendFollowUp(context.Background(), &domain.FollowUpEmailData{
				Email:      "ada@example.com",
				Name:       "Ada",
				EventTitle: "Go Webinar",
				Attended:   tt.attended,
			})
			require.NoError(t, err)
			require.Equal(t, tt.wantTemplate, renderer.lastTemplate)
		})
	}
}

func TestEmailService_SendManualReminder(t *testing.T) {
	renderer := &fakeRenderer{}
	mailer := &fakeMailer{}
	svc := NewEmailService(mailer, renderer)

	subject, err := svc.SendManualReminder(context.Background(), &domain.ManualEmailData{
		Email:      "ada@example.com",
		Name:       "Ada",
		EventTitle: "Go Webinar",
	})
	require.NoError(t, err)
	require.Equal(t, "manual", renderer.lastTemplate)
	require.NotEmpty(t, subject)
}

func TestEmailService_Errors(t *testing.T) {
	t.Run("nil data", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{})
		_, err := svc.SendReminder(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("render failure does not send", func(t *testing.T) {
		mailer := &fakeMailer{}
		svc := NewEmailService(mailer, &fakeRenderer{err: errors.New("bad template")})
		_, err := svc.SendReminder(context.Background(), &domain.ReminderEmailData{Email: "a@example.com"})
		require.Error(t, err)
		require.Empty(t, mailer.sent)
	})

	t.Run("send failure surfaces", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{err: errors.New("smtp down")}, &fakeRenderer{})
		_, err := svc.SendFollowUp(context.Background(), &domain.FollowUpEmailData{Email: "a@example.com"})
		require.ErrorContains(t, err, "smtp down")
	})
}
