package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Action types recorded against the rate_limits table.
const (
	ActionEmailSend = "email_send"
)

// RateLimitRecord is one recorded action, counted against daily caps.
type RateLimitRecord struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	ActionType string          `json:"action_type"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RateLimitRepository persists recorded actions so daily caps hold across
// invocations and instances.
type RateLimitRepository interface {
	// CountSince counts recorded actions of the given type since the cutoff.
	// An empty userID counts across all users (the global limit).
	CountSince(ctx context.Context, userID, actionType string, since time.Time) (int, error)
	Record(ctx context.Context, record *RateLimitRecord) error
	// DeleteOlderThan removes stale records and returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateLimitDecision is the outcome of a rate limit check.
type RateLimitDecision struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason"`
	UserRemaining   int    `json:"user_remaining"`
	GlobalRemaining int    `json:"global_remaining"`
}

// RateLimitUsage is a snapshot of the process-local send counters, reported in
// the scheduler run summary.
type RateLimitUsage struct {
	HourlySent int `json:"hourly_sent"`
	HourlyCap  int `json:"hourly_cap"`
	DailySent  int `json:"daily_sent"`
	DailyCap   int `json:"daily_cap"`
}

// RateLimiter combines process-local hourly/daily send caps with persistent
// per-user and global daily caps.
type RateLimiter interface {
	// AllowAction checks every cap and, when allowed, consumes one unit of the
	// process-local counters. Persistent cap checks fail open: a storage error
	// is logged and the action is allowed.
	AllowAction(ctx context.Context, userID, actionType string) *RateLimitDecision
	// RecordAction persists the action for cross-invocation counting.
	RecordAction(ctx context.Context, userID, actionType string, metadata json.RawMessage) error
	Usage() RateLimitUsage
}
