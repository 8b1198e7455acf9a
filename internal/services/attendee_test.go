package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"

	"github.com/stretchr/testify/require"
)

type attendeeFixture struct {
	events    *fakeEventRepo
	attendees *fakeAttendeeRepo
	interests *fakeInterestRepo
	svc       domain.AttendeeService
	event     *domain.Event
}

func newAttendeeFixture(t *testing.T) *attendeeFixture {
	t.Helper()
	f := &attendeeFixture{
		events:    newFakeEventRepo(),
		attendees: newFakeAttendeeRepo(),
		interests: &fakeInterestRepo{byAttendee: make(map[string]*domain.InterestRecord)},
	}
	f.svc = NewAttendeeService(f.attendees, f.events, f.interests)
	f.event = &domain.Event{
		OwnerID:     "owner-1",
		Title:       "Go Webinar",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Status:      domain.EventStatusUpcoming,
	}
	require.NoError(t, f.events.Create(context.Background(), f.event))
	return f
}

func TestAttendeeService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new attendee with normalized email", func(t *testing.T) {
		f := newAttendeeFixture(t)
		attendee, created, err := f.svc.Register(ctx, f.event.ID, "  Ada@Example.COM ", nil)
		require.NoError(t, err)
		require.True(t, created)
		require.Equal(t, "ada@example.com", attendee.Email)
		require.NotEmpty(t, attendee.ID)
	})

	t.Run("second registration is idempotent", func(t *testing.T) {
		f := newAttendeeFixture(t)
		first, created, err := f.svc.Register(ctx, f.event.ID, "ada@example.com", nil)
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := f.svc.Register(ctx, f.event.ID, "ADA@example.com", nil)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		f := newAttendeeFixture(t)
		_, _, err := f.svc.Register(ctx, f.event.ID, "not-an-email", nil)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newAttendeeFixture(t)
		_, _, err := f.svc.Register(ctx, "ev-missing", "ada@example.com", nil)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAttendeeService_ListAttendees(t *testing.T) {
	ctx := context.Background()
	f := newAttendeeFixture(t)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, _, err := f.svc.Register(ctx, f.event.ID, email, nil)
		require.NoError(t, err)
	}

	attendees, total, err := f.svc.ListAttendees(ctx, f.event.ID, "owner-1", domain.PaginationParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, attendees, 2)

	_, _, err = f.svc.ListAttendees(ctx, f.event.ID, "owner-2", domain.PaginationParams{Page: 1, PageSize: 2})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAttendeeService_SetAttended(t *testing.T) {
	ctx := context.Background()
	f := newAttendeeFixture(t)

	attendee, _, err := f.svc.Register(ctx, f.event.ID, "ada@example.com", nil)
	require.NoError(t, err)

	updated, err := f.svc.SetAttended(ctx, f.event.ID, attendee.ID, "owner-1", true)
	require.NoError(t, err)
	require.NotNil(t, updated.Attended)
	require.True(t, *updated.Attended)

	_, err = f.svc.SetAttended(ctx, f.event.ID, attendee.ID, "owner-2", true)
	require.ErrorIs(t, err, domain.ErrForbidden)

	// Attendee registered for a different event is invisible here.
	other := &domain.Event{OwnerID: "owner-1", Title: "Other", ScheduledAt: time.Now().Add(time.Hour), Status: domain.EventStatusUpcoming}
	require.NoError(t, f.events.Create(ctx, other))
	_, err = f.svc.SetAttended(ctx, other.ID, attendee.ID, "owner-1", true)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttendeeService_UpsertInterests(t *testing.T) {
	ctx := context.Background()
	f := newAttendeeFixture(t)

	attendee, _, err := f.svc.Register(ctx, f.event.ID, "ada@example.com", nil)
	require.NoError(t, err)

	interests := json.RawMessage(`["generics","profiling"]`)
	record, err := f.svc.UpsertInterests(ctx, f.event.ID, attendee.ID, "owner-1", interests, nil)
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	require.JSONEq(t, `["generics","profiling"]`, string(record.Interests))

	_, err = f.svc.UpsertInterests(ctx, f.event.ID, attendee.ID, "owner-2", interests, nil)
	require.ErrorIs(t, err, domain.ErrForbidden)
}
