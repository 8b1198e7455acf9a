package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/helpers"
	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/middleware"
	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

// RegisterAttendeeRequest is the request body for POST /events/{eventID}/attendees.
type RegisterAttendeeRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Validate implements Validator.
func (a RegisterAttendeeRequest) Validate() []string {
	var errs []string
	if a.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(strings.TrimSpace(a.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	return errs
}

// RegisterAttendeeSuccessResponse is the success response envelope for POST /events/{eventID}/attendees (201 or 200).
type RegisterAttendeeSuccessResponse struct {
	Data  *domain.Attendee  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type AttendeeController struct {
	Logger  *slog.Logger
	Service domain.AttendeeService
}

func NewAttendeeController(logger *slog.Logger, svc domain.AttendeeService) *AttendeeController {
	return &AttendeeController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterAttendee godoc
// @Summary Register an attendee for an event
// @Description Registers an email address for the event. Registering the same email twice returns 200 with the existing attendee instead of creating a duplicate. This endpoint is public (registration forms are unauthenticated).
// @Tags attendees
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RegisterAttendeeRequest true "Attendee data"
// @Success 201 {object} controllers.RegisterAttendeeSuccessResponse "data contains the new attendee"
// @Success 200 {object} controllers.RegisterAttendeeSuccessResponse "data contains the existing attendee"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendees [post]
func (c *AttendeeController) RegisterAttendee(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req RegisterAttendeeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	attendee, created, err := c.Service.Register(r.Context(), eventID, req.Email, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, attendee)
}

// ListAttendeesResponse is the data payload for GET /events/{eventID}/attendees (200).
type ListAttendeesResponse struct {
	Items      []*domain.Attendee     `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListAttendeesSuccessResponse is the success response envelope for GET /events/{eventID}/attendees (200).
type ListAttendeesSuccessResponse struct {
	Data  ListAttendeesResponse `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListAttendees godoc
// @Summary List attendees of an event
// @Description Returns a paginated list of attendees. Only the event owner can list. Use page and page_size query params. Requires authentication.
// @Tags attendees
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListAttendeesSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendees [get]
func (c *AttendeeController) ListAttendees(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	params := helpers.ParsePagination(r)
	attendees, total, err := c.Service.ListAttendees(r.Context(), eventID, callerID, params)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if attendees == nil {
		attendees = []*domain.Attendee{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListAttendeesResponse{Items: attendees, Pagination: meta})
}

// SetAttendedRequest is the request body for PATCH /events/{eventID}/attendees/{attendeeID}/attended.
type SetAttendedRequest struct {
	Attended *bool `json:"attended"`
}

// Validate implements Validator.
func (s SetAttendedRequest) Validate() []string {
	if s.Attended == nil {
		return []string{"attended is required"}
	}
	return nil
}

// SetAttendedSuccessResponse is the success response envelope for PATCH /events/{eventID}/attendees/{attendeeID}/attended (200).
type SetAttendedSuccessResponse struct {
	Data  *domain.Attendee  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// SetAttended godoc
// @Summary Mark whether an attendee showed up
// @Description Sets the attended flag on an attendee. The flag controls which follow-up variant the attendee receives. Only the event owner can set it. Requires authentication.
// @Tags attendees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param attendeeID path string true "Attendee ID (UUID)"
// @Param body body SetAttendedRequest true "Attended flag"
// @Success 200 {object} controllers.SetAttendedSuccessResponse "data contains the updated attendee"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendees/{attendeeID}/attended [patch]
func (c *AttendeeController) SetAttended(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	attendeeID := r.PathValue("attendeeID")
	if eventID == "" || attendeeID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or attendeeID")
		return
	}
	var req SetAttendedRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	attendee, err := c.Service.SetAttended(r.Context(), eventID, attendeeID, callerID, *req.Attended)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event or attendee not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, attendee)
}

// UpsertInterestsRequest is the request body for PUT /events/{eventID}/attendees/{attendeeID}/interests.
type UpsertInterestsRequest struct {
	Interests   json.RawMessage `json:"interests"`
	Preferences json.RawMessage `json:"preferences"`
}

// Validate implements Validator.
func (u UpsertInterestsRequest) Validate() []string {
	if len(u.Interests) == 0 && len(u.Preferences) == 0 {
		return []string{"interests or preferences is required"}
	}
	return nil
}

// UpsertInterestsSuccessResponse is the success response envelope for PUT /events/{eventID}/attendees/{attendeeID}/interests (200).
type UpsertInterestsSuccessResponse struct {
	Data  *domain.InterestRecord `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// UpsertInterests godoc
// @Summary Set an attendee's interests
// @Description Inserts or replaces the attendee's interests and preferences. At most one record exists per attendee; a second call replaces the first. The record feeds email personalization. Only the event owner can set it. Requires authentication.
// @Tags attendees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param attendeeID path string true "Attendee ID (UUID)"
// @Param body body UpsertInterestsRequest true "Interests and preferences as JSON"
// @Success 200 {object} controllers.UpsertInterestsSuccessResponse "data contains the stored record"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendees/{attendeeID}/interests [put]
func (c *AttendeeController) UpsertInterests(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	attendeeID := r.PathValue("attendeeID")
	if eventID == "" || attendeeID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or attendeeID")
		return
	}
	var req UpsertInterestsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	record, err := c.Service.UpsertInterests(r.Context(), eventID, attendeeID, callerID, req.Interests, req.Preferences)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event or attendee not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, record)
}
