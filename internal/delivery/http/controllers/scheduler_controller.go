package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/helpers"
	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

// RunSchedulerRequest is the request body for POST /scheduler/run. All fields optional.
type RunSchedulerRequest struct {
	EventID           string `json:"event_id"`
	ReminderLeadHours int    `json:"reminder_lead_hours"`
}

// Validate implements Validator.
func (r RunSchedulerRequest) Validate() []string {
	var errs []string
	if r.ReminderLeadHours < 0 {
		errs = append(errs, "reminder_lead_hours must be non-negative")
	}
	return errs
}

// RunSchedulerSuccessResponse is the success response envelope for POST /scheduler/run (200).
type RunSchedulerSuccessResponse struct {
	Data  *domain.RunSummary `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type SchedulerController struct {
	Logger        *slog.Logger
	Scheduler     domain.EngagementScheduler
	Notifications domain.NotificationService
}

func NewSchedulerController(logger *slog.Logger, scheduler domain.EngagementScheduler, notifications domain.NotificationService) *SchedulerController {
	return &SchedulerController{
		Logger:        logger,
		Scheduler:     scheduler,
		Notifications: notifications,
	}
}

// RunScheduler godoc
// @Summary Run the engagement scheduler
// @Description Triggers one scheduler run: finds events due a reminder or follow-up, fans out over attendees, and sends at most one email per attendee, event, and notification type. The body can restrict the run to a single event or override the reminder lead time. Requires authentication.
// @Tags scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RunSchedulerRequest true "Run options (all optional; send {} for a full run)"
// @Success 200 {object} controllers.RunSchedulerSuccessResponse "data contains the run summary"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /scheduler/run [post]
func (c *SchedulerController) RunScheduler(w http.ResponseWriter, r *http.Request) {
	var req RunSchedulerRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	summary, err := c.Scheduler.Run(r.Context(), domain.RunOptions{
		EventID:           req.EventID,
		ReminderLeadHours: req.ReminderLeadHours,
	})
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, summary)
}

// SendNotificationRequest is the request body for POST /notifications/send.
type SendNotificationRequest struct {
	AttendeeID    string `json:"attendee_id"`
	EventID       string `json:"event_id"`
	PostEvent     bool   `json:"post_event"`
	CustomMessage string `json:"custom_message"`
}

// Validate implements Validator.
func (s SendNotificationRequest) Validate() []string {
	var errs []string
	if s.AttendeeID == "" {
		errs = append(errs, "attendee_id is required")
	}
	if s.EventID == "" {
		errs = append(errs, "event_id is required")
	}
	return errs
}

// SendNotificationResponse is the data payload for POST /notifications/send (200).
type SendNotificationResponse struct {
	EmailID string `json:"email_id"`
	Status  string `json:"status"`
}

// SendNotificationSuccessResponse is the success response envelope for POST /notifications/send (200).
type SendNotificationSuccessResponse struct {
	Data  SendNotificationResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// SendNotification godoc
// @Summary Send a single manual reminder
// @Description Sends one fixed-template reminder to one attendee, bypassing the scheduler but not the rate limits or the one-email-per-type guard. A second call for the same attendee and event returns 409. Requires authentication.
// @Tags scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendNotificationRequest true "Target attendee and event"
// @Success 200 {object} controllers.SendNotificationSuccessResponse "data contains the email log ID"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already sent)"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notifications/send [post]
func (c *SchedulerController) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	emailID, err := c.Notifications.SendSingle(r.Context(), req.AttendeeID, req.EventID, req.PostEvent, req.CustomMessage)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "attendee or event not found")
			return
		}
		if errors.Is(err, domain.ErrAlreadySent) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		if errors.Is(err, domain.ErrRateLimited) {
			helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeRateLimited, err.Error())
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
	helpers.WriteJSONSuccess(w, http.StatusOK, SendNotificationResponse{EmailID: emailID, Status: "sent"})
}
