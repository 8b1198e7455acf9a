// Webinar Buddy API
//
// @title Webinar Buddy API
// @version 1.0
// @description Webinar engagement backend: event and attendee management plus scheduled reminder and follow-up emails.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/config"
	_ "github.com/gigashifu/webinar-buddy-bot/docs"
	"github.com/gigashifu/webinar-buddy-bot/internal/adapters/auth"
	"github.com/gigashifu/webinar-buddy-bot/internal/adapters/email"
	"github.com/gigashifu/webinar-buddy-bot/internal/adapters/openai"
	httpdelivery "github.com/gigashifu/webinar-buddy-bot/internal/delivery/http"
	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/controllers"
	"github.com/gigashifu/webinar-buddy-bot/internal/delivery/http/middleware"
	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
	"github.com/gigashifu/webinar-buddy-bot/internal/repository/postgres"
	"github.com/gigashifu/webinar-buddy-bot/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("invalid configuration", "err", e)
		}
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DBUrl)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.ApplyMigrations(cfg.DBUrl, "migrations"); err != nil {
		logger.Error("failed to apply migrations", "err", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	attendeeRepo := postgres.NewAttendeeRepository(db)
	engagementRepo := postgres.NewEngagementRepository(db)
	interestRepo := postgres.NewInterestRepository(db)
	emailLogRepo := postgres.NewEmailLogRepository(db)
	rateLimitRepo := postgres.NewRateLimitRepository(db)

	// Stale rate limit records only matter for the daily windows.
	if deleted, err := rateLimitRepo.DeleteOlderThan(context.Background(), time.Now().Add(-cfg.RateLimitRetention)); err != nil {
		logger.Warn("rate limit cleanup failed", "err", err)
	} else if deleted > 0 {
		logger.Info("cleaned up rate limit records", "deleted", deleted)
	}

	// Adapters
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFrom,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKey,
			SecretAccessKey: cfg.SESSecretKey,
		},
		SMTP: email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	renderer := email.NewTemplateRenderer()
	_, verifier := auth.NewJWTTokens(cfg.JWTSecret)

	// Services
	emailSvc := services.NewEmailService(mailer, renderer)
	limiter := services.NewRateLimiter(rateLimitRepo, logger, services.RateLimiterConfig{
		HourlyCap:             cfg.HourlyEmailCap,
		DailyCap:              cfg.DailyEmailCap,
		MaxDailyUserActions:   cfg.MaxDailyUserActions,
		MaxDailyGlobalActions: cfg.MaxDailyGlobalActions,
	})

	var contentSvc domain.ContentService
	if cfg.EnableAIAgent && !cfg.SkipContentGeneration {
		generator := openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}, &http.Client{Timeout: 30 * time.Second})
		contentSvc = services.NewContentService(generator, engagementRepo, interestRepo, logger, services.ContentConfig{
			HourlyCallCap:  cfg.AIHourlyCallCap,
			CacheTTL:       cfg.ContentCacheTTL,
			MaxRetries:     cfg.MaxRetries,
			RetryBaseDelay: cfg.RetryBaseDelay,
			RetryMaxDelay:  cfg.RetryMaxDelay,
		})
	}

	scheduler := services.NewEngagementScheduler(
		eventRepo, attendeeRepo, engagementRepo, emailLogRepo,
		emailSvc, contentSvc, limiter, logger,
		services.SchedulerConfig{
			EnableReminders:   cfg.EnableReminders,
			EnableFollowUps:   cfg.EnableFollowUps,
			EnableAIAgent:     cfg.EnableAIAgent && !cfg.SkipContentGeneration,
			ReminderLeadHours: cfg.ReminderLeadHours,
			FollowUpLookback:  cfg.FollowUpLookback,
			BatchSize:         cfg.BatchSize,
			BatchPause:        cfg.BatchPause,
			MaxRetries:        cfg.MaxRetries,
			RetryBaseDelay:    cfg.RetryBaseDelay,
			RetryMaxDelay:     cfg.RetryMaxDelay,
		},
	)
	notificationSvc := services.NewNotificationService(attendeeRepo, eventRepo, emailLogRepo, emailSvc, limiter, logger)
	eventSvc := services.NewEventService(eventRepo)
	attendeeSvc := services.NewAttendeeService(attendeeRepo, eventRepo, interestRepo)

	// Controllers and router
	eventController := controllers.NewEventController(logger, eventSvc)
	attendeeController := controllers.NewAttendeeController(logger, attendeeSvc)
	schedulerController := controllers.NewSchedulerController(logger, scheduler, notificationSvc)

	mux := httpdelivery.NewRouter(eventController, attendeeController, schedulerController, verifier, logger)
	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SchedulerInterval > 0 {
		go runSchedulerLoop(ctx, scheduler, cfg.SchedulerInterval, logger)
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	cancel()
	logger.Info("server stopped")
}

// runSchedulerLoop triggers a full scheduler run on a fixed interval until the
// context is cancelled.
func runSchedulerLoop(ctx context.Context, scheduler domain.EngagementScheduler, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("scheduler loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := scheduler.Run(ctx, domain.RunOptions{}); err != nil {
				logger.Error("scheduled run failed", "err", err)
			}
		}
	}
}
