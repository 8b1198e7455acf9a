package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
)

// Rate limit rejection reasons.
const (
	ReasonHourlyCapExceeded   = "hourly_cap_exceeded"
	ReasonDailyCapExceeded    = "daily_cap_exceeded"
	ReasonUserLimitExceeded   = "user_limit_exceeded"
	ReasonGlobalLimitExceeded = "global_limit_exceeded"
	ReasonWithinLimits        = "within_limits"
)

// RateLimiterConfig holds caps for the combined rate limiter.
type RateLimiterConfig struct {
	// Process-local caps, reset on hourly/daily rollover.
	HourlyCap int
	DailyCap  int
	// Persistent daily caps counted against the rate_limits table.
	MaxDailyUserActions   int
	MaxDailyGlobalActions int
}

type rateLimiter struct {
	repo   domain.RateLimitRepository
	logger *slog.Logger
	cfg    RateLimiterConfig
	now    func() time.Time

	mu        sync.Mutex
	hourStart time.Time
	hourCount int
	dayStart  time.Time
	dayCount  int
}

// NewRateLimiter combines process-local hourly/daily counters with persistent
// per-user and global daily caps backed by repo. Persistent checks fail open.
func NewRateLimiter(repo domain.RateLimitRepository, logger *slog.Logger, cfg RateLimiterConfig) domain.RateLimiter {
	now := time.Now()
	return &rateLimiter{
		repo:      repo,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		hourStart: now,
		dayStart:  startOfDay(now),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// rollover resets the local counters when their window has passed.
// Caller must hold mu.
func (l *rateLimiter) rollover(now time.Time) {
	if now.Sub(l.hourStart) >= time.Hour {
		l.hourStart = now
		l.hourCount = 0
	}
	if day := startOfDay(now); day.After(l.dayStart) {
		l.dayStart = day
		l.dayCount = 0
	}
}

func (l *rateLimiter) AllowAction(ctx context.Context, userID, actionType string) *domain.RateLimitDecision {
	now := l.now()

	l.mu.Lock()
	l.rollover(now)
	if l.cfg.HourlyCap > 0 && l.hourCount >= l.cfg.HourlyCap {
		l.mu.Unlock()
		return &domain.RateLimitDecision{
			Allowed: false,
			Reason:  ReasonHourlyCapExceeded,
		}
	}
	if l.cfg.DailyCap > 0 && l.dayCount >= l.cfg.DailyCap {
		l.mu.Unlock()
		return &domain.RateLimitDecision{
			Allowed: false,
			Reason:  ReasonDailyCapExceeded,
		}
	}
	// Reserve the unit before the persistent checks. Concurrent callers must
	// not all pass the local caps on the same pre-increment counts.
	l.hourCount++
	l.dayCount++
	l.mu.Unlock()

	todayStart := startOfDay(now)
	userRemaining := l.cfg.MaxDailyUserActions
	globalRemaining := l.cfg.MaxDailyGlobalActions

	if userID != "" && l.cfg.MaxDailyUserActions > 0 {
		count, err := l.repo.CountSince(ctx, userID, actionType, todayStart)
		if err != nil {
			// Fail open: a broken limit check must not block every send.
			l.logger.Warn("user rate limit check failed, allowing action", "user_id", userID, "err", err)
		} else {
			if count >= l.cfg.MaxDailyUserActions {
				l.release()
				return &domain.RateLimitDecision{
					Allowed:         false,
					Reason:          ReasonUserLimitExceeded,
					GlobalRemaining: globalRemaining,
				}
			}
			userRemaining = l.cfg.MaxDailyUserActions - count
		}
	}

	if l.cfg.MaxDailyGlobalActions > 0 {
		count, err := l.repo.CountSince(ctx, "", actionType, todayStart)
		if err != nil {
			l.logger.Warn("global rate limit check failed, allowing action", "err", err)
		} else {
			if count >= l.cfg.MaxDailyGlobalActions {
				l.release()
				return &domain.RateLimitDecision{
					Allowed:       false,
					Reason:        ReasonGlobalLimitExceeded,
					UserRemaining: userRemaining,
				}
			}
			globalRemaining = l.cfg.MaxDailyGlobalActions - count
		}
	}

	return &domain.RateLimitDecision{
		Allowed:         true,
		Reason:          ReasonWithinLimits,
		UserRemaining:   userRemaining,
		GlobalRemaining: globalRemaining,
	}
}

// release returns a reserved unit when a persistent cap rejects the action.
// The counters may have rolled over in between, so never go below zero.
func (l *rateLimiter) release() {
	l.mu.Lock()
	if l.hourCount > 0 {
		l.hourCount--
	}
	if l.dayCount > 0 {
		l.dayCount--
	}
	l.mu.Unlock()
}

func (l *rateLimiter) RecordAction(ctx context.Context, userID, actionType string, metadata json.RawMessage) error {
	rec := &domain.RateLimitRecord{
		UserID:     userID,
		ActionType: actionType,
		Metadata:   metadata,
		CreatedAt:  l.now(),
	}
	if err := l.repo.Record(ctx, rec); err != nil {
		return fmt.Errorf("record rate limit action: %w", err)
	}
	return nil
}

func (l *rateLimiter) Usage() domain.RateLimitUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.RateLimitUsage{
		HourlySent: l.hourCount,
		HourlyCap:  l.cfg.HourlyCap,
		DailySent:  l.dayCount,
		DailyCap:   l.cfg.DailyCap,
	}
}
