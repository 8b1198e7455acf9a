package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
	"github.com/gigashifu/webinar-buddy-bot/internal/metrics"
	"github.com/gigashifu/webinar-buddy-bot/internal/retry"
)

var stripTagsRegex = regexp.MustCompile("<[^>]*>")

// promptFieldMax caps how much of any one field is embedded in a prompt.
const promptFieldMax = 300

// ContentConfig tunes the content generation service.
type ContentConfig struct {
	HourlyCallCap  int
	CacheTTL       time.Duration
	MaxTokens      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// RecentEngagements is how many recent engagement records to embed in the prompt.
	RecentEngagements int
}

type cacheEntry struct {
	text    string
	expires time.Time
}

type contentService struct {
	generator      domain.ContentGenerator
	engagementRepo domain.EngagementRepository
	interestRepo   domain.InterestRepository
	logger         *slog.Logger
	cfg            ContentConfig
	now            func() time.Time

	mu        sync.Mutex
	cache     map[string]cacheEntry
	hourStart time.Time
	callCount int
}

// NewContentService returns a ContentService that calls the generator with a
// TTL cache and an hourly call cap. Generation failures degrade to an empty
// paragraph rather than an error; callers skip the email in that case.
func NewContentService(
	generator domain.ContentGenerator,
	engagementRepo domain.EngagementRepository,
	interestRepo domain.InterestRepository,
	logger *slog.Logger,
	cfg ContentConfig,
) domain.ContentService {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 160
	}
	if cfg.RecentEngagements == 0 {
		cfg.RecentEngagements = 3
	}
	return &contentService{
		generator:      generator,
		engagementRepo: engagementRepo,
		interestRepo:   interestRepo,
		logger:         logger,
		cfg:            cfg,
		now:            time.Now,
		cache:          make(map[string]cacheEntry),
		hourStart:      time.Now(),
	}
}

func (s *contentService) ReminderParagraph(ctx context.Context, event *domain.Event, attendee *domain.Attendee, leadHours int) (string, error) {
	key := fmt.Sprintf("reminder:%s:%d", event.ID, leadHours)
	prompt := s.buildPrompt(ctx, event, attendee,
		fmt.Sprintf("Write an encouraging reminder that the webinar starts in about %d hours.", leadHours))
	return s.generate(ctx, key, prompt)
}

func (s *contentService) FollowUpParagraph(ctx context.Context, event *domain.Event, attendee *domain.Attendee, attended bool) (string, error) {
	key := fmt.Sprintf("followup:%s:%t", event.ID, attended)
	instruction := "Write a warm thank-you note for someone who attended the webinar, pointing them to the recording."
	if !attended {
		instruction = "Write a friendly note for someone who registered but missed the webinar, inviting them to watch the recording."
	}
	prompt := s.buildPrompt(ctx, event, attendee, instruction)
	return s.generate(ctx, key, prompt)
}

// generate returns a cached paragraph when fresh, otherwise calls the
// generator under the hourly cap. Exhausted retries and exceeded caps yield
// ("", nil): the caller must not send that email.
func (s *contentService) generate(ctx context.Context, key, prompt string) (string, error) {
	now := s.now()

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && now.Before(entry.expires) {
		s.mu.Unlock()
		return entry.text, nil
	}
	if now.Sub(s.hourStart) >= time.Hour {
		s.hourStart = now
		s.callCount = 0
	}
	if s.cfg.HourlyCallCap > 0 && s.callCount >= s.cfg.HourlyCallCap {
		s.mu.Unlock()
		s.logger.Warn("content generation skipped: hourly call cap reached", "cap", s.cfg.HourlyCallCap)
		metrics.GeneratorCalls.WithLabelValues("capped").Inc()
		return "", nil
	}
	s.callCount++
	s.mu.Unlock()

	var text string
	err := retry.Do(ctx, s.cfg.MaxRetries, s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, func() error {
		out, err := s.generator.Complete(ctx, prompt, s.cfg.MaxTokens)
		if err != nil {
			return err
		}
		text = out
		return nil
	}, retry.IsTransient)
	if err != nil {
		s.logger.Warn("content generation failed, skipping email", "err", err)
		metrics.GeneratorCalls.WithLabelValues("failed").Inc()
		return "", nil
	}
	metrics.GeneratorCalls.WithLabelValues("ok").Inc()

	s.mu.Lock()
	s.cache[key] = cacheEntry{text: text, expires: now.Add(s.cfg.CacheTTL)}
	s.mu.Unlock()
	return text, nil
}

// buildPrompt assembles the user prompt from sanitized event and attendee
// fields plus whatever history is available. Repo errors here are not fatal:
// personalization just gets less context.
func (s *contentService) buildPrompt(ctx context.Context, event *domain.Event, attendee *domain.Attendee, instruction string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\nWebinar: ")
	b.WriteString(sanitizeField(event.Title))
	if event.Description != nil && *event.Description != "" {
		b.WriteString("\nAbout: ")
		b.WriteString(sanitizeField(*event.Description))
	}
	b.WriteString("\nRecipient first name: ")
	b.WriteString(sanitizeField(attendee.DisplayName()))

	if s.engagementRepo != nil {
		records, err := s.engagementRepo.ListRecentByAttendeeID(ctx, attendee.ID, s.cfg.RecentEngagements)
		if err != nil {
			s.logger.Debug("could not load engagement history for prompt", "attendee_id", attendee.ID, "err", err)
		} else if len(records) > 0 {
			types := make([]string, 0, len(records))
			for _, r := range records {
				types = append(types, sanitizeField(r.EngagementType))
			}
			b.WriteString("\nRecent activity: ")
			b.WriteString(strings.Join(types, ", "))
		}
	}

	if s.interestRepo != nil {
		if rec, err := s.interestRepo.GetByAttendeeID(ctx, attendee.ID); err == nil && len(rec.Interests) > 0 {
			b.WriteString("\nStated interests: ")
			b.WriteString(sanitizeField(string(rec.Interests)))
		}
	}

	return b.String()
}

// sanitizeField strips HTML tags, collapses whitespace, and truncates, so
// stored free text cannot smuggle markup or walls of text into the prompt.
func sanitizeField(s string) string {
	s = stripTagsRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > promptFieldMax {
		cut := promptFieldMax
		// Back off to a rune boundary so the cut cannot split a multi-byte
		// character into an invalid sequence.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
