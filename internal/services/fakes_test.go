package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID   map[string]*domain.Event
	nextID int
	err    error // if set, every call returns this error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Event
	for _, e := range f.byID {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, eventID string, title, description *string, scheduledAt *time.Time, status *string) (*domain.Event, error) {
	e, ok := f.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if title != nil {
		e.Title = *title
	}
	if description != nil {
		e.Description = description
	}
	if scheduledAt != nil {
		e.ScheduledAt = *scheduledAt
	}
	if status != nil {
		e.Status = *status
	}
	return e, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) ListUpcomingWithin(ctx context.Context, within time.Duration, eventID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	horizon := time.Now().Add(within)
	var out []*domain.Event
	for _, e := range f.byID {
		if e.Status != domain.EventStatusUpcoming || e.ScheduledAt.After(horizon) {
			continue
		}
		if eventID != "" && e.ID != eventID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) ListCompletedSince(ctx context.Context, lookback time.Duration, eventID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	cutoff := time.Now().Add(-lookback)
	var out []*domain.Event
	for _, e := range f.byID {
		if e.Status != domain.EventStatusCompleted || e.ScheduledAt.Before(cutoff) {
			continue
		}
		if eventID != "" && e.ID != eventID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// fakeAttendeeRepo is an in-memory AttendeeRepository for tests.
type fakeAttendeeRepo struct {
	byID   map[string]*domain.Attendee
	nextID int
	err    error
}

func newFakeAttendeeRepo() *fakeAttendeeRepo {
	return &fakeAttendeeRepo{byID: make(map[string]*domain.Attendee), nextID: 1}
}

func (f *fakeAttendeeRepo) Create(ctx context.Context, a *domain.Attendee) error {
	if f.err != nil {
		return f.err
	}
	a.ID = fmt.Sprintf("att-%d", f.nextID)
	f.nextID++
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAttendeeRepo) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAttendeeRepo) GetByEventAndEmail(ctx context.Context, eventID, email string) (*domain.Attendee, error) {
	for _, a := range f.byID {
		if a.EventID == eventID && a.Email == email {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAttendeeRepo) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Attendee, int, error) {
	all, err := f.ListAllByEventID(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeAttendeeRepo) ListAllByEventID(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Attendee
	for i := 1; i < f.nextID; i++ {
		id := fmt.Sprintf("att-%d", i)
		if a, ok := f.byID[id]; ok && a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttendeeRepo) SetAttended(ctx context.Context, id string, attended bool) (*domain.Attendee, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a.Attended = &attended
	return a, nil
}

// fakeEngagementRepo records appended engagement records.
type fakeEngagementRepo struct {
	mu      sync.Mutex
	records []*domain.EngagementRecord
	err     error
}

func (f *fakeEngagementRepo) Append(ctx context.Context, rec *domain.EngagementRecord) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = fmt.Sprintf("eng-%d", len(f.records)+1)
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeEngagementRepo) ListRecentByAttendeeID(ctx context.Context, attendeeID string, limit int) ([]*domain.EngagementRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.EngagementRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].AttendeeID == attendeeID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

// fakeInterestRepo holds one record per attendee.
type fakeInterestRepo struct {
	byAttendee map[string]*domain.InterestRecord
	err        error
}

func newFakeInterestRepo() *fakeInterestRepo {
	return &fakeInterestRepo{byAttendee: make(map[string]*domain.InterestRecord)}
}

func (f *fakeInterestRepo) Upsert(ctx context.Context, rec *domain.InterestRecord) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = "int-" + rec.AttendeeID
	f.byAttendee[rec.AttendeeID] = rec
	return nil
}

func (f *fakeInterestRepo) GetByAttendeeID(ctx context.Context, attendeeID string) (*domain.InterestRecord, error) {
	if rec, ok := f.byAttendee[attendeeID]; ok {
		return rec, nil
	}
	return nil, domain.ErrNotFound
}

// fakeEmailLogRepo tracks claims keyed by (attendee, event, type).
type fakeEmailLogRepo struct {
	mu        sync.Mutex
	claims    map[string]*domain.EmailLog
	nextID    int
	claimErr  error
	finalized map[string]string // log ID -> final status
}

func newFakeEmailLogRepo() *fakeEmailLogRepo {
	return &fakeEmailLogRepo{
		claims:    make(map[string]*domain.EmailLog),
		finalized: make(map[string]string),
		nextID:    1,
	}
}

func (f *fakeEmailLogRepo) Claim(ctx context.Context, log *domain.EmailLog) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := log.AttendeeID + "|" + log.EventID + "|" + log.EmailType
	if _, ok := f.claims[key]; ok {
		return false, nil
	}
	log.ID = fmt.Sprintf("log-%d", f.nextID)
	f.nextID++
	f.claims[key] = log
	return true, nil
}

func (f *fakeEmailLogRepo) Finalize(ctx context.Context, id, subject, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized[id] = status
	return nil
}

func (f *fakeEmailLogRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.EmailLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.EmailLog
	for _, l := range f.claims {
		if l.EventID == eventID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeEmailLogRepo) claimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims)
}

// fakeEmailService counts sends and can fail a configurable number of times.
type fakeEmailService struct {
	mu        sync.Mutex
	reminders []*domain.ReminderEmailData
	followUps []*domain.FollowUpEmailData
	manuals   []*domain.ManualEmailData
	failAll   error
	failFirst int // fail this many sends before succeeding
}

func (f *fakeEmailService) SendReminder(ctx context.Context, data *domain.ReminderEmailData) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return "", err
	}
	f.reminders = append(f.reminders, data)
	return "Reminder: " + data.EventTitle, nil
}

func (f *fakeEmailService) SendFollowUp(ctx context.Context, data *domain.FollowUpEmailData) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return "", err
	}
	f.followUps = append(f.followUps, data)
	return "Thanks for joining " + data.EventTitle, nil
}

func (f *fakeEmailService) SendManualReminder(ctx context.Context, data *domain.ManualEmailData) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return "", err
	}
	f.manuals = append(f.manuals, data)
	return "About " + data.EventTitle, nil
}

func (f *fakeEmailService) maybeFail() error {
	if f.failAll != nil {
		return f.failAll
	}
	if f.failFirst > 0 {
		f.failFirst--
		return fmt.Errorf("smtp connection reset")
	}
	return nil
}

func (f *fakeEmailService) reminderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reminders)
}

func (f *fakeEmailService) followUpCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.followUps)
}

// fakeContentService returns a fixed paragraph, or empty when drained.
type fakeContentService struct {
	paragraph string
	err       error
}

func (f *fakeContentService) ReminderParagraph(ctx context.Context, event *domain.Event, attendee *domain.Attendee, leadHours int) (string, error) {
	return f.paragraph, f.err
}

func (f *fakeContentService) FollowUpParagraph(ctx context.Context, event *domain.Event, attendee *domain.Attendee, attended bool) (string, error) {
	return f.paragraph, f.err
}

// fakeLimiter allows or denies everything and records actions.
type fakeLimiter struct {
	mu       sync.Mutex
	deny     bool
	reason   string
	recorded int
}

func (f *fakeLimiter) AllowAction(ctx context.Context, userID, actionType string) *domain.RateLimitDecision {
	if f.deny {
		reason := f.reason
		if reason == "" {
			reason = ReasonDailyCapExceeded
		}
		return &domain.RateLimitDecision{Allowed: false, Reason: reason}
	}
	return &domain.RateLimitDecision{Allowed: true, Reason: ReasonWithinLimits}
}

func (f *fakeLimiter) RecordAction(ctx context.Context, userID, actionType string, metadata json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded++
	return nil
}

func (f *fakeLimiter) Usage() domain.RateLimitUsage {
	return domain.RateLimitUsage{}
}

// fakeGenerator implements domain.ContentGenerator with scripted responses.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	text  string
	errs  []error // consumed one per call before text is returned
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.text, nil
}

// fakeRateLimitRepo backs rate limiter tests with fixed counts.
type fakeRateLimitRepo struct {
	mu          sync.Mutex
	userCounts  map[string]int
	globalCount int
	countErr    error
	countDelay  time.Duration
	records     []*domain.RateLimitRecord
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{userCounts: make(map[string]int)}
}

func (f *fakeRateLimitRepo) CountSince(ctx context.Context, userID, actionType string, since time.Time) (int, error) {
	if f.countDelay > 0 {
		time.Sleep(f.countDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	if userID == "" {
		return f.globalCount, nil
	}
	return f.userCounts[userID], nil
}

func (f *fakeRateLimitRepo) Record(ctx context.Context, rec *domain.RateLimitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	f.userCounts[rec.UserID]++
	f.globalCount++
	return nil
}

func (f *fakeRateLimitRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
