package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type attendeeService struct {
	attendeeRepo domain.AttendeeRepository
	eventRepo    domain.EventRepository
	interestRepo domain.InterestRepository
	timeout      time.Duration
}

// NewAttendeeService returns an AttendeeService backed by the given repositories.
func NewAttendeeService(
	attendeeRepo domain.AttendeeRepository,
	eventRepo domain.EventRepository,
	interestRepo domain.InterestRepository,
) domain.AttendeeService {
	return &attendeeService{
		attendeeRepo: attendeeRepo,
		eventRepo:    eventRepo,
		interestRepo: interestRepo,
		timeout:      5 * time.Second,
	}
}

// Register registers an email for the event. Registering the same email twice
// returns the existing attendee with created=false.
func (s *attendeeService) Register(ctx context.Context, eventID, email string, name *string) (*domain.Attendee, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, false, fmt.Errorf("invalid email address: %w", domain.ErrInvalidInput)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, false, fmt.Errorf("failed to get event: %w", err)
	}

	existing, err := s.attendeeRepo.GetByEventAndEmail(ctx, eventID, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up attendee: %w", err)
	}

	attendee := domain.NewAttendee(eventID, email, name, time.Now())
	if err := s.attendeeRepo.Create(ctx, attendee); err != nil {
		return nil, false, fmt.Errorf("failed to register attendee: %w", err)
	}
	return attendee, true, nil
}

func (s *attendeeService) ListAttendees(ctx context.Context, eventID, callerID string, params domain.PaginationParams) ([]*domain.Attendee, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.requireOwner(ctx, eventID, callerID); err != nil {
		return nil, 0, err
	}
	attendees, total, err := s.attendeeRepo.ListByEventID(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendees: %w", err)
	}
	return attendees, total, nil
}

func (s *attendeeService) SetAttended(ctx context.Context, eventID, attendeeID, callerID string, attended bool) (*domain.Attendee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.requireOwner(ctx, eventID, callerID); err != nil {
		return nil, err
	}
	attendee, err := s.attendeeRepo.GetByID(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}
	if attendee.EventID != eventID {
		return nil, fmt.Errorf("attendee %s is not registered for event %s: %w", attendeeID, eventID, domain.ErrNotFound)
	}

	updated, err := s.attendeeRepo.SetAttended(ctx, attendeeID, attended)
	if err != nil {
		return nil, fmt.Errorf("failed to set attendance: %w", err)
	}
	return updated, nil
}

func (s *attendeeService) UpsertInterests(ctx context.Context, eventID, attendeeID, callerID string, interests, preferences json.RawMessage) (*domain.InterestRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.requireOwner(ctx, eventID, callerID); err != nil {
		return nil, err
	}
	attendee, err := s.attendeeRepo.GetByID(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}
	if attendee.EventID != eventID {
		return nil, fmt.Errorf("attendee %s is not registered for event %s: %w", attendeeID, eventID, domain.ErrNotFound)
	}

	record := &domain.InterestRecord{
		AttendeeID:  attendeeID,
		Interests:   interests,
		Preferences: preferences,
	}
	if err := s.interestRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert interests: %w", err)
	}
	return record, nil
}

func (s *attendeeService) requireOwner(ctx context.Context, eventID, callerID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event.OwnerID != callerID {
		return domain.ErrForbidden
	}
	return nil
}
