package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
	"github.com/gigashifu/webinar-buddy-bot/internal/metrics"
)

type notificationService struct {
	attendeeRepo domain.AttendeeRepository
	eventRepo    domain.EventRepository
	emailLogRepo domain.EmailLogRepository
	emails       domain.EmailService
	limiter      domain.RateLimiter
	logger       *slog.Logger
	timeout      time.Duration
}

// NewNotificationService returns a NotificationService for on-demand single
// sends. These use fixed templates, never the content generator.
func NewNotificationService(
	attendeeRepo domain.AttendeeRepository,
	eventRepo domain.EventRepository,
	emailLogRepo domain.EmailLogRepository,
	emails domain.EmailService,
	limiter domain.RateLimiter,
	logger *slog.Logger,
) domain.NotificationService {
	return &notificationService{
		attendeeRepo: attendeeRepo,
		eventRepo:    eventRepo,
		emailLogRepo: emailLogRepo,
		emails:       emails,
		limiter:      limiter,
		logger:       logger,
		timeout:      10 * time.Second,
	}
}

func (s *notificationService) SendSingle(ctx context.Context, attendeeID, eventID string, postEvent bool, customMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	attendee, err := s.attendeeRepo.GetByID(ctx, attendeeID)
	if err != nil {
		return "", fmt.Errorf("get attendee: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("get event: %w", err)
	}
	if attendee.EventID != event.ID {
		return "", fmt.Errorf("attendee %s is not registered for event %s: %w", attendeeID, eventID, domain.ErrInvalidInput)
	}
	if !emailRegex.MatchString(attendee.Email) {
		return "", fmt.Errorf("attendee has an invalid email address: %w", domain.ErrInvalidInput)
	}

	decision := s.limiter.AllowAction(ctx, event.OwnerID, domain.ActionEmailSend)
	if !decision.Allowed {
		return "", fmt.Errorf("%s: %w", decision.Reason, domain.ErrRateLimited)
	}

	// Pre- and post-event manual sends occupy separate log slots, so sending
	// a reminder does not block a later follow-up for the same attendee.
	emailType := domain.EmailTypeManual
	if postEvent {
		emailType = domain.EmailTypeManualFollowUp
	}
	entry := &domain.EmailLog{
		AttendeeID: attendee.ID,
		EventID:    event.ID,
		EmailType:  emailType,
		Status:     domain.EmailStatusPending,
	}
	claimed, err := s.emailLogRepo.Claim(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("claim email log row: %w", err)
	}
	if !claimed {
		return "", fmt.Errorf("%s already sent to attendee %s for event %s: %w", emailType, attendeeID, eventID, domain.ErrAlreadySent)
	}

	subject, sendErr := s.emails.SendManualReminder(ctx, &domain.ManualEmailData{
		Email:         attendee.Email,
		Name:          attendee.DisplayName(),
		EventTitle:    event.Title,
		EventTime:     event.ScheduledAt,
		PostEvent:     postEvent,
		CustomMessage: customMessage,
	})
	if sendErr != nil {
		if err := s.emailLogRepo.Finalize(ctx, entry.ID, subject, domain.EmailStatusFailed); err != nil {
			s.logger.Error("failed to finalize email log row", "email_id", entry.ID, "err", err)
		}
		metrics.EmailsFailed.WithLabelValues(emailType).Inc()
		return "", fmt.Errorf("send manual reminder: %w", sendErr)
	}

	if err := s.emailLogRepo.Finalize(ctx, entry.ID, subject, domain.EmailStatusSent); err != nil {
		s.logger.Error("failed to finalize email log row", "email_id", entry.ID, "err", err)
	}
	if err := s.limiter.RecordAction(ctx, event.OwnerID, domain.ActionEmailSend, nil); err != nil {
		s.logger.Warn("failed to record rate limit action", "err", err)
	}
	metrics.EmailsSent.WithLabelValues(emailType).Inc()
	return entry.ID, nil
}
