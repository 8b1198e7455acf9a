package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/helpers"
	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/middleware"
	"github.com/gigashifu/webinar-buddy-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAttendeeService implements domain.AttendeeService for handler tests.
type fakeAttendeeService struct {
	registerErr       error
	registerResult    *domain.Attendee
	registerCreated   bool
	listErr           error
	listResult        []*domain.Attendee
	listTotal         int
	setAttendedErr    error
	setAttendedResult *domain.Attendee
	upsertErr         error
	upsertResult      *domain.InterestRecord

	lastRegisterEventID   string
	lastRegisterEmail     string
	lastRegisterName      *string
	lastListEventID       string
	lastListCallerID      string
	lastListParams        domain.PaginationParams
	lastSetEventID        string
	lastSetAttendeeID     string
	lastSetCallerID       string
	lastSetAttended       bool
	lastUpsertEventID     string
	lastUpsertAttendeeID  string
	lastUpsertCallerID    string
	lastUpsertInterests   json.RawMessage
	lastUpsertPreferences json.RawMessage
}

func (f *fakeAttendeeService) Register(ctx context.Context, eventID, email string, name *string) (*domain.Attendee, bool, error) {
	f.lastRegisterEventID = eventID
	f.lastRegisterEmail = email
	f.lastRegisterName = name
	if f.registerErr != nil {
		return nil, false, f.registerErr
	}
	if f.registerResult != nil {
		return f.registerResult, f.registerCreated, nil
	}
	return &domain.Attendee{ID: "att-created", EventID: eventID, Email: email}, true, nil
}

func (f *fakeAttendeeService) ListAttendees(ctx context.Context, eventID, callerID string, params domain.PaginationParams) ([]*domain.Attendee, int, error) {
	f.lastListEventID = eventID
	f.lastListCallerID = callerID
	f.lastListParams = params
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listResult, f.listTotal, nil
}

func (f *fakeAttendeeService) SetAttended(ctx context.Context, eventID, attendeeID, callerID string, attended bool) (*domain.Attendee, error) {
	f.lastSetEventID = eventID
	f.lastSetAttendeeID = attendeeID
	f.lastSetCallerID = callerID
	f.lastSetAttended = attended
	if f.setAttendedErr != nil {
		return nil, f.setAttendedErr
	}
	return f.setAttendedResult, nil
}

func (f *fakeAttendeeService) UpsertInterests(ctx context.Context, eventID, attendeeID, callerID string, interests, preferences json.RawMessage) (*domain.InterestRecord, error) {
	f.lastUpsertEventID = eventID
	f.lastUpsertAttendeeID = attendeeID
	f.lastUpsertCallerID = callerID
	f.lastUpsertInterests = interests
	f.lastUpsertPreferences = preferences
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.upsertResult != nil {
		return f.upsertResult, nil
	}
	return &domain.InterestRecord{ID: "int-1", AttendeeID: attendeeID, Interests: interests, Preferences: preferences}, nil
}

func TestAttendeeController_RegisterAttendee(t *testing.T) {
	tests := []struct {
		name           string
		eventID        string
		body           string
		fakeErr        error
		fakeResult     *domain.Attendee
		fakeCreated    bool
		wantStatus     int
		wantBodySubstr string
		checkCall      func(t *testing.T, fake *fakeAttendeeService)
	}{
		{
			name:       "new registration returns 201",
			eventID:    "ev-1",
			body:       `{"email":"ada@example.com","name":"Ada"}`,
			wantStatus: http.StatusCreated,
			checkCall: func(t *testing.T, fake *fakeAttendeeService) {
				assert.Equal(t, "ev-1", fake.lastRegisterEventID)
				assert.Equal(t, "ada@example.com", fake.lastRegisterEmail)
				require.NotNil(t, fake.lastRegisterName)
				assert.Equal(t, "Ada", *fake.lastRegisterName)
			},
		},
		{
			name:        "existing registration returns 200",
			eventID:     "ev-1",
			body:        `{"email":"ada@example.com"}`,
			fakeResult:  &domain.Attendee{ID: "att-1", EventID: "ev-1", Email: "ada@example.com"},
			fakeCreated: false,
			wantStatus:  http.StatusOK,
		},
		{
			name:           "missing eventID",
			eventID:        "",
			body:           `{"email":"ada@example.com"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "missing eventID",
		},
		{
			name:           "missing email",
			eventID:        "ev-1",
			body:           `{}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "email is required",
		},
		{
			name:           "malformed email",
			eventID:        "ev-1",
			body:           `{"email":"not-an-email"}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "valid email",
		},
		{
			name:           "event not found",
			eventID:        "ev-missing",
			body:           `{"email":"ada@example.com"}`,
			fakeErr:        domain.ErrNotFound,
			wantStatus:     http.StatusNotFound,
			wantBodySubstr: "event not found",
		},
		{
			name:           "service error",
			eventID:        "ev-1",
			body:           `{"email":"ada@example.com"}`,
			fakeErr:        errors.New("db error"),
			wantStatus:     http.StatusInternalServerError,
			wantBodySubstr: "db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendeeService{
				registerErr:     tt.fakeErr,
				registerResult:  tt.fakeResult,
				registerCreated: tt.fakeCreated,
			}
			ctrl := NewAttendeeController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "http://test/events/"+tt.eventID+"/attendees", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.eventID != "" {
				req.SetPathValue("eventID", tt.eventID)
			}
			rr := httptest.NewRecorder()
			ctrl.RegisterAttendee(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if rr.Code < 400 && tt.checkCall != nil {
				require.Nil(t, envelope.Error)
				tt.checkCall(t, fake)
			}
			if tt.wantBodySubstr != "" && envelope.Error != nil {
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
			}
		})
	}
}

func TestAttendeeController_ListAttendees(t *testing.T) {
	tests := []struct {
		name           string
		eventID        string
		query          string
		noUserContext  bool
		fakeErr        error
		fakeResult     []*domain.Attendee
		fakeTotal      int
		wantStatus     int
		wantBodySubstr string
		checkResponse  func(t *testing.T, fake *fakeAttendeeService, data ListAttendeesResponse)
	}{
		{
			name:    "success with pagination",
			eventID: "ev-1",
			query:   "?page=2&page_size=10",
			fakeResult: []*domain.Attendee{
				{ID: "att-11", EventID: "ev-1", Email: "k@example.com"},
			},
			fakeTotal:  25,
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, fake *fakeAttendeeService, data ListAttendeesResponse) {
				assert.Equal(t, 2, fake.lastListParams.Page)
				assert.Equal(t, 10, fake.lastListParams.PageSize)
				require.Len(t, data.Items, 1)
				assert.Equal(t, 25, data.Pagination.Total)
				assert.Equal(t, 3, data.Pagination.TotalPages)
			},
		},
		{
			name:       "empty list returns array not null",
			eventID:    "ev-1",
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, fake *fakeAttendeeService, data ListAttendeesResponse) {
				require.NotNil(t, data.Items)
				require.Len(t, data.Items, 0)
			},
		},
		{
			name:           "no user in context",
			eventID:        "ev-1",
			noUserContext:  true,
			wantStatus:     http.StatusUnauthorized,
			wantBodySubstr: "unauthorized",
		},
		{
			name:           "forbidden",
			eventID:        "ev-1",
			fakeErr:        domain.ErrForbidden,
			wantStatus:     http.StatusForbidden,
			wantBodySubstr: "forbidden",
		},
		{
			name:           "event not found",
			eventID:        "ev-missing",
			fakeErr:        domain.ErrNotFound,
			wantStatus:     http.StatusNotFound,
			wantBodySubstr: "event not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendeeService{listErr: tt.fakeErr, listResult: tt.fakeResult, listTotal: tt.fakeTotal}
			ctrl := NewAttendeeController(testLogger, fake)
			req := httptest.NewRequest(http.MethodGet, "http://test/events/"+tt.eventID+"/attendees"+tt.query, nil)
			if tt.eventID != "" {
				req.SetPathValue("eventID", tt.eventID)
			}
			if !tt.noUserContext {
				req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			}
			rr := httptest.NewRecorder()
			ctrl.ListAttendees(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusOK && tt.checkResponse != nil {
				require.Nil(t, envelope.Error)
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var data ListAttendeesResponse
				require.NoError(t, json.Unmarshal(dataBytes, &data))
				tt.checkResponse(t, fake, data)
			}
			if tt.wantBodySubstr != "" && envelope.Error != nil {
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
			}
		})
	}
}

func TestAttendeeController_SetAttended(t *testing.T) {
	attended := true
	tests := []struct {
		name           string
		eventID        string
		attendeeID     string
		body           string
		noUserContext  bool
		fakeErr        error
		fakeResult     *domain.Attendee
		wantStatus     int
		wantBodySubstr string
		checkCall      func(t *testing.T, fake *fakeAttendeeService)
	}{
		{
			name:       "success",
			eventID:    "ev-1",
			attendeeID: "att-1",
			body:       `{"attended":true}`,
			fakeResult: &domain.Attendee{ID: "att-1", EventID: "ev-1", Email: "ada@example.com", Attended: &attended},
			wantStatus: http.StatusOK,
			checkCall: func(t *testing.T, fake *fakeAttendeeService) {
				assert.Equal(t, "ev-1", fake.lastSetEventID)
				assert.Equal(t, "att-1", fake.lastSetAttendeeID)
				assert.Equal(t, "user-123", fake.lastSetCallerID)
				assert.True(t, fake.lastSetAttended)
			},
		},
		{
			name:           "missing attendeeID",
			eventID:        "ev-1",
			attendeeID:     "",
			body:           `{"attended":true}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "missing eventID or attendeeID",
		},
		{
			name:           "attended flag required",
			eventID:        "ev-1",
			attendeeID:     "att-1",
			body:           `{}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "attended is required",
		},
		{
			name:           "no user in context",
			eventID:        "ev-1",
			attendeeID:     "att-1",
			body:           `{"attended":false}`,
			noUserContext:  true,
			wantStatus:     http.StatusUnauthorized,
			wantBodySubstr: "unauthorized",
		},
		{
			name:           "attendee not found",
			eventID:        "ev-1",
			attendeeID:     "att-missing",
			body:           `{"attended":true}`,
			fakeErr:        domain.ErrNotFound,
			wantStatus:     http.StatusNotFound,
			wantBodySubstr: "event or attendee not found",
		},
		{
			name:           "forbidden",
			eventID:        "ev-1",
			attendeeID:     "att-1",
			body:           `{"attended":true}`,
			fakeErr:        domain.ErrForbidden,
			wantStatus:     http.StatusForbidden,
			wantBodySubstr: "forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendeeService{setAttendedErr: tt.fakeErr, setAttendedResult: tt.fakeResult}
			ctrl := NewAttendeeController(testLogger, fake)
			path := "http://test/events/" + tt.eventID + "/attendees/" + tt.attendeeID + "/attended"
			req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.eventID != "" {
				req.SetPathValue("eventID", tt.eventID)
			}
			if tt.attendeeID != "" {
				req.SetPathValue("attendeeID", tt.attendeeID)
			}
			if !tt.noUserContext {
				req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			}
			rr := httptest.NewRecorder()
			ctrl.SetAttended(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusOK && tt.checkCall != nil {
				require.Nil(t, envelope.Error)
				tt.checkCall(t, fake)
			}
			if tt.wantBodySubstr != "" && envelope.Error != nil {
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
			}
		})
	}
}

func TestAttendeeController_UpsertInterests(t *testing.T) {
	tests := []struct {
		name           string
		eventID        string
		attendeeID     string
		body           string
		noUserContext  bool
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
		checkCall      func(t *testing.T, fake *fakeAttendeeService)
	}{
		{
			name:       "success",
			eventID:    "ev-1",
			attendeeID: "att-1",
			body:       `{"interests":["generics","profiling"],"preferences":{"cadence":"weekly"}}`,
			wantStatus: http.StatusOK,
			checkCall: func(t *testing.T, fake *fakeAttendeeService) {
				assert.Equal(t, "ev-1", fake.lastUpsertEventID)
				assert.Equal(t, "att-1", fake.lastUpsertAttendeeID)
				assert.JSONEq(t, `["generics","profiling"]`, string(fake.lastUpsertInterests))
				assert.JSONEq(t, `{"cadence":"weekly"}`, string(fake.lastUpsertPreferences))
			},
		},
		{
			name:       "interests alone is enough",
			eventID:    "ev-1",
			attendeeID: "att-1",
			body:       `{"interests":["generics"]}`,
			wantStatus: http.StatusOK,
		},
		{
			name:           "empty body rejected",
			eventID:        "ev-1",
			attendeeID:     "att-1",
			body:           `{}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "interests or preferences is required",
		},
		{
			name:           "missing attendeeID",
			eventID:        "ev-1",
			attendeeID:     "",
			body:           `{"interests":["x"]}`,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "missing eventID or attendeeID",
		},
		{
			name:           "no user in context",
			eventID:        "ev-1",
			attendeeID:     "att-1",
			body:           `{"interests":["x"]}`,
			noUserContext:  true,
			wantStatus:     http.StatusUnauthorized,
			wantBodySubstr: "unauthorized",
		},
		{
			name:           "not found",
			eventID:        "ev-1",
			attendeeID:     "att-missing",
			body:           `{"interests":["x"]}`,
			fakeErr:        domain.ErrNotFound,
			wantStatus:     http.StatusNotFound,
			wantBodySubstr: "event or attendee not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendeeService{upsertErr: tt.fakeErr}
			ctrl := NewAttendeeController(testLogger, fake)
			path := "http://test/events/" + tt.eventID + "/attendees/" + tt.attendeeID + "/interests"
			req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.eventID != "" {
				req.SetPathValue("eventID", tt.eventID)
			}
			if tt.attendeeID != "" {
				req.SetPathValue("attendeeID", tt.attendeeID)
			}
			if !tt.noUserContext {
				req = req.WithContext(middleware.SetUserID(req.Context(), "user-123"))
			}
			rr := httptest.NewRecorder()
			ctrl.UpsertInterests(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantStatus == http.StatusOK && tt.checkCall != nil {
				require.Nil(t, envelope.Error)
				tt.checkCall(t, fake)
			}
			if tt.wantBodySubstr != "" && envelope.Error != nil {
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
			}
		})
	}
}
