package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
	"github.com/gigashifu/webinar-buddy-bot/internal/metrics"
	"github.com/gigashifu/webinar-buddy-bot/internal/retry"
)

var emailRegex = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// leadTolerance is how far either side of an exact lead time an event still
// counts as due. Runs are expected at most hourly, so a one hour window
// guarantees each lead fires exactly once.
const leadTolerance = time.Hour

// Skip reasons used in metrics and logs.
const (
	skipReasonRateLimited  = "rate_limited"
	skipReasonAlreadySent  = "already_sent"
	skipReasonEmptyContent = "empty_content"
)

// SchedulerConfig tunes one scheduler run.
type SchedulerConfig struct {
	EnableReminders bool
	EnableFollowUps bool
	EnableAIAgent   bool

	ReminderLeadHours []int
	FollowUpLookback  time.Duration

	BatchSize  int
	BatchPause time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

type engagementScheduler struct {
	eventRepo      domain.EventRepository
	attendeeRepo   domain.AttendeeRepository
	engagementRepo domain.EngagementRepository
	emailLogRepo   domain.EmailLogRepository
	emails         domain.EmailService
	content        domain.ContentService
	limiter        domain.RateLimiter
	logger         *slog.Logger
	cfg            SchedulerConfig
	now            func() time.Time
}

// NewEngagementScheduler wires the full pipeline: find due events, fan out
// over attendees in batches, and for each attendee rate-limit, personalize,
// claim the email log row, and send.
func NewEngagementScheduler(
	eventRepo domain.EventRepository,
	attendeeRepo domain.AttendeeRepository,
	engagementRepo domain.EngagementRepository,
	emailLogRepo domain.EmailLogRepository,
	emails domain.EmailService,
	content domain.ContentService,
	limiter domain.RateLimiter,
	logger *slog.Logger,
	cfg SchedulerConfig,
) domain.EngagementScheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if len(cfg.ReminderLeadHours) == 0 {
		cfg.ReminderLeadHours = []int{24, 1}
	}
	if cfg.FollowUpLookback <= 0 {
		cfg.FollowUpLookback = 24 * time.Hour
	}
	return &engagementScheduler{
		eventRepo:      eventRepo,
		attendeeRepo:   attendeeRepo,
		engagementRepo: engagementRepo,
		emailLogRepo:   emailLogRepo,
		emails:         emails,
		content:        content,
		limiter:        limiter,
		logger:         logger,
		cfg:            cfg,
		now:            time.Now,
	}
}

// runState accumulates counters across the concurrent attendee workers.
type runState struct {
	mu      sync.Mutex
	summary domain.RunSummary
}

func (s *runState) count(emailType, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch emailType {
	case domain.EmailTypeReminder:
		switch outcome {
		case "sent":
			s.summary.RemindersSent++
		case "failed":
			s.summary.RemindersFailed++
		case "skipped":
			s.summary.RemindersSkipped++
		}
	case domain.EmailTypeFollowUp:
		switch outcome {
		case "sent":
			s.summary.FollowUpsSent++
		case "failed":
			s.summary.FollowUpsFailed++
		case "skipped":
			s.summary.FollowUpsSkipped++
		}
	}
}

func (s *engagementScheduler) Run(ctx context.Context, opts domain.RunOptions) (*domain.RunSummary, error) {
	started := s.now()
	state := &runState{summary: domain.RunSummary{StartedAt: started}}

	leads := s.cfg.ReminderLeadHours
	if opts.ReminderLeadHours > 0 {
		leads = []int{opts.ReminderLeadHours}
	}

	if s.cfg.EnableReminders {
		if err := s.processReminders(ctx, opts.EventID, leads, state); err != nil {
			metrics.SchedulerRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("process reminders: %w", err)
		}
	}
	if s.cfg.EnableFollowUps {
		if err := s.processFollowUps(ctx, opts.EventID, state); err != nil {
			metrics.SchedulerRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("process follow-ups: %w", err)
		}
	}

	summary := state.summary
	summary.RateLimit = s.limiter.Usage()
	summary.DurationMillis = s.now().Sub(started).Milliseconds()

	metrics.SchedulerRuns.WithLabelValues("ok").Inc()
	metrics.SchedulerRunDuration.Observe(float64(summary.DurationMillis) / 1000)
	s.logger.Info("scheduler run finished",
		"events_checked", summary.EventsChecked,
		"reminders_sent", summary.RemindersSent,
		"reminders_failed", summary.RemindersFailed,
		"reminders_skipped", summary.RemindersSkipped,
		"followups_sent", summary.FollowUpsSent,
		"followups_failed", summary.FollowUpsFailed,
		"followups_skipped", summary.FollowUpsSkipped,
		"duration_ms", summary.DurationMillis,
	)
	return &summary, nil
}

func (s *engagementScheduler) processReminders(ctx context.Context, eventID string, leads []int, state *runState) error {
	maxLead := 0
	for _, l := range leads {
		if l > maxLead {
			maxLead = l
		}
	}
	within := time.Duration(maxLead)*time.Hour + leadTolerance

	events, err := s.eventRepo.ListUpcomingWithin(ctx, within, eventID)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}

	sorted := append([]int(nil), leads...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	for _, event := range events {
		state.mu.Lock()
		state.summary.EventsChecked++
		state.mu.Unlock()

		lead, due := dueLead(s.now(), event.ScheduledAt, sorted)
		if !due {
			continue
		}

		attendees, err := s.attendeeRepo.ListAllByEventID(ctx, event.ID)
		if err != nil {
			s.logger.Error("failed to list attendees, skipping event", "event_id", event.ID, "err", err)
			continue
		}
		s.logger.Info("sending reminders", "event_id", event.ID, "lead_hours", lead, "attendees", len(attendees))

		s.fanOut(ctx, attendees, func(ctx context.Context, attendee *domain.Attendee) {
			s.sendReminder(ctx, event, attendee, lead, state)
		})
	}
	return nil
}

func (s *engagementScheduler) processFollowUps(ctx context.Context, eventID string, state *runState) error {
	events, err := s.eventRepo.ListCompletedSince(ctx, s.cfg.FollowUpLookback, eventID)
	if err != nil {
		return fmt.Errorf("list completed events: %w", err)
	}

	for _, event := range events {
		state.mu.Lock()
		state.summary.EventsChecked++
		state.mu.Unlock()

		attendees, err := s.attendeeRepo.ListAllByEventID(ctx, event.ID)
		if err != nil {
			s.logger.Error("failed to list attendees, skipping event", "event_id", event.ID, "err", err)
			continue
		}
		s.logger.Info("sending follow-ups", "event_id", event.ID, "attendees", len(attendees))

		s.fanOut(ctx, attendees, func(ctx context.Context, attendee *domain.Attendee) {
			s.sendFollowUp(ctx, event, attendee, state)
		})
	}
	return nil
}

// dueLead picks the largest lead time whose window covers the gap between now
// and the event start. Events already started never match.
func dueLead(now, scheduledAt time.Time, sortedLeads []int) (int, bool) {
	until := scheduledAt.Sub(now)
	if until <= 0 {
		return 0, false
	}
	for _, lead := range sortedLeads {
		target := time.Duration(lead) * time.Hour
		diff := until - target
		if diff < 0 {
			diff = -diff
		}
		if diff <= leadTolerance {
			return lead, true
		}
	}
	return 0, false
}

// fanOut processes attendees in fixed-size batches, each batch concurrently,
// pausing between batches so a big event does not burst the email provider.
func (s *engagementScheduler) fanOut(ctx context.Context, attendees []*domain.Attendee, process func(context.Context, *domain.Attendee)) {
	for start := 0; start < len(attendees); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			return
		}
		end := start + s.cfg.BatchSize
		if end > len(attendees) {
			end = len(attendees)
		}

		var wg sync.WaitGroup
		for _, attendee := range attendees[start:end] {
			wg.Add(1)
			go func(a *domain.Attendee) {
				defer wg.Done()
				process(ctx, a)
			}(attendee)
		}
		wg.Wait()

		if end < len(attendees) && s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.BatchPause):
			}
		}
	}
}

func (s *engagementScheduler) sendReminder(ctx context.Context, event *domain.Event, attendee *domain.Attendee, lead int, state *runState) {
	outcome := s.deliver(ctx, event, attendee, domain.EmailTypeReminder, func(personal string) (string, error) {
		return s.emails.SendReminder(ctx, &domain.ReminderEmailData{
			Email:      attendee.Email,
			Name:       attendee.DisplayName(),
			EventTitle: event.Title,
			EventTime:  event.ScheduledAt,
			LeadHours:  lead,
			Personal:   personal,
		})
	}, func() (string, error) {
		return s.content.ReminderParagraph(ctx, event, attendee, lead)
	})
	state.count(domain.EmailTypeReminder, outcome)
}

func (s *engagementScheduler) sendFollowUp(ctx context.Context, event *domain.Event, attendee *domain.Attendee, state *runState) {
	attended := attendee.Attended != nil && *attendee.Attended
	outcome := s.deliver(ctx, event, attendee, domain.EmailTypeFollowUp, func(personal string) (string, error) {
		return s.emails.SendFollowUp(ctx, &domain.FollowUpEmailData{
			Email:      attendee.Email,
			Name:       attendee.DisplayName(),
			EventTitle: event.Title,
			Attended:   attended,
			Personal:   personal,
		})
	}, func() (string, error) {
		return s.content.FollowUpParagraph(ctx, event, attendee, attended)
	})
	state.count(domain.EmailTypeFollowUp, outcome)
}

// deliver runs the per-attendee pipeline and returns "sent", "failed" or
// "skipped". Content is generated before the log row is claimed: an empty
// paragraph means no send and no row, so a later run may try again.
func (s *engagementScheduler) deliver(
	ctx context.Context,
	event *domain.Event,
	attendee *domain.Attendee,
	emailType string,
	send func(personal string) (string, error),
	generate func() (string, error),
) string {
	log := s.logger.With("event_id", event.ID, "attendee_id", attendee.ID, "email_type", emailType)

	if !emailRegex.MatchString(attendee.Email) {
		log.Warn("invalid email address, counting as failed")
		metrics.EmailsFailed.WithLabelValues(emailType).Inc()
		return "failed"
	}

	decision := s.limiter.AllowAction(ctx, event.OwnerID, domain.ActionEmailSend)
	if !decision.Allowed {
		log.Warn("rate limited, skipping", "reason", decision.Reason)
		metrics.EmailsSkipped.WithLabelValues(emailType, skipReasonRateLimited).Inc()
		return "skipped"
	}

	var personal string
	if s.cfg.EnableAIAgent && s.content != nil {
		var err error
		personal, err = generate()
		if err != nil {
			log.Warn("content generation error, skipping", "err", err)
			metrics.EmailsSkipped.WithLabelValues(emailType, skipReasonEmptyContent).Inc()
			return "skipped"
		}
		if personal == "" {
			log.Info("no personalized content, skipping")
			metrics.EmailsSkipped.WithLabelValues(emailType, skipReasonEmptyContent).Inc()
			return "skipped"
		}
	}

	entry := &domain.EmailLog{
		AttendeeID: attendee.ID,
		EventID:    event.ID,
		EmailType:  emailType,
		Status:     domain.EmailStatusPending,
	}
	claimed, err := s.emailLogRepo.Claim(ctx, entry)
	if err != nil {
		log.Error("failed to claim email log row", "err", err)
		metrics.EmailsFailed.WithLabelValues(emailType).Inc()
		return "failed"
	}
	if !claimed {
		metrics.EmailsSkipped.WithLabelValues(emailType, skipReasonAlreadySent).Inc()
		return "skipped"
	}

	var subject string
	sendErr := retry.Do(ctx, s.cfg.MaxRetries, s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, func() error {
		var err error
		subject, err = send(personal)
		return err
	}, nil)

	if sendErr != nil {
		log.Error("send failed", "err", sendErr)
		if err := s.emailLogRepo.Finalize(ctx, entry.ID, subject, domain.EmailStatusFailed); err != nil {
			log.Error("failed to finalize email log row", "err", err)
		}
		metrics.EmailsFailed.WithLabelValues(emailType).Inc()
		return "failed"
	}

	if err := s.emailLogRepo.Finalize(ctx, entry.ID, subject, domain.EmailStatusSent); err != nil {
		log.Error("failed to finalize email log row", "err", err)
	}
	s.recordEngagement(ctx, event, attendee, emailType, subject, log)
	if err := s.limiter.RecordAction(ctx, event.OwnerID, domain.ActionEmailSend, nil); err != nil {
		log.Warn("failed to record rate limit action", "err", err)
	}
	metrics.EmailsSent.WithLabelValues(emailType).Inc()
	return "sent"
}

func (s *engagementScheduler) recordEngagement(ctx context.Context, event *domain.Event, attendee *domain.Attendee, emailType, subject string, log *slog.Logger) {
	engagementType := domain.EngagementReminderSent
	if emailType == domain.EmailTypeFollowUp {
		engagementType = domain.EngagementFollowUpSent
	}
	payload, _ := json.Marshal(map[string]string{"subject": subject})
	rec := &domain.EngagementRecord{
		AttendeeID:     attendee.ID,
		EventID:        event.ID,
		EngagementType: engagementType,
		Payload:        payload,
		CreatedAt:      s.now(),
	}
	if err := s.engagementRepo.Append(ctx, rec); err != nil {
		log.Warn("failed to append engagement record", "err", err)
	}
}
