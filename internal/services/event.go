package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

type eventService struct {
	eventRepo domain.EventRepository
	timeout   time.Duration
}

// NewEventService returns an EventService backed by the given repository.
func NewEventService(eventRepo domain.EventRepository) domain.EventService {
	return &eventService{eventRepo: eventRepo, timeout: 5 * time.Second}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if strings.TrimSpace(event.Title) == "" {
		return fmt.Errorf("event title is required: %w", domain.ErrInvalidInput)
	}
	if event.ScheduledAt.IsZero() {
		return fmt.Errorf("event scheduled time is required: %w", domain.ErrInvalidInput)
	}
	if event.Status == "" {
		event.Status = domain.EventStatusUpcoming
	}
	if !domain.ValidEventStatus(event.Status) {
		return fmt.Errorf("invalid event status %q: %w", event.Status, domain.ErrInvalidInput)
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	events, err := s.eventRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID, callerID string, title, description *string, scheduledAt *time.Time, status *string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if current.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	if title != nil && strings.TrimSpace(*title) == "" {
		return nil, fmt.Errorf("event title cannot be empty: %w", domain.ErrInvalidInput)
	}
	if status != nil {
		if !domain.ValidEventStatus(*status) {
			return nil, fmt.Errorf("invalid event status %q: %w", *status, domain.ErrInvalidInput)
		}
		if !validStatusTransition(current.Status, *status) {
			return nil, fmt.Errorf("cannot move event from %s to %s: %w", current.Status, *status, domain.ErrInvalidInput)
		}
	}

	updated, err := s.eventRepo.Update(ctx, eventID, title, description, scheduledAt, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event.OwnerID != callerID {
		return domain.ErrForbidden
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// validStatusTransition allows the forward path upcoming -> live -> completed
// plus staying put. Completed events never go back.
func validStatusTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case domain.EventStatusUpcoming:
		return to == domain.EventStatusLive || to == domain.EventStatusCompleted
	case domain.EventStatusLive:
		return to == domain.EventStatusCompleted
	}
	return false
}
