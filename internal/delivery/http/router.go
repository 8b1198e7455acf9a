package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/controllers"
	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/helpers"
	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/middleware"
	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	eventController *controllers.EventController,
	attendeeController *controllers.AttendeeController,
	schedulerController *controllers.SchedulerController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /events/me", auth(eventController.ListMyEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(eventController.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(eventController.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(eventController.DeleteEvent))

	// Attendees. Registration is public, everything else is owner-only.
	mux.HandleFunc("POST /events/{eventID}/attendees", attendeeController.RegisterAttendee)
	mux.HandleFunc("GET /events/{eventID}/attendees", auth(attendeeController.ListAttendees))
	mux.HandleFunc("PATCH /events/{eventID}/attendees/{attendeeID}/attended", auth(attendeeController.SetAttended))
	mux.HandleFunc("PUT /events/{eventID}/attendees/{attendeeID}/interests", auth(attendeeController.UpsertInterests))

	// Scheduler
	mux.HandleFunc("POST /scheduler/run", auth(schedulerController.RunScheduler))
	mux.HandleFunc("POST /notifications/send", auth(schedulerController.SendNotification))

	// Operational endpoints
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
