// Package ratelimit budgets reasoning-service usage per minute and per day.
// A refused Acquire maps to the pipeline's rate-limited failure mode: the
// caller skips that escalation step and keeps its current best result.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Limits holds request/token budgets. Zero or negative means unlimited
// for that dimension.
type Limits struct {
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int
	TokensPerDay      int
}

type window struct {
	start    time.Time
	requests int
	tokens   int
}

// Limiter reserves budget before a call and reconciles with actual usage
// after. Reservations use estimates; RecordActual adjusts the books once the
// provider reports real token counts.
type Limiter struct {
	mu     sync.Mutex
	limits Limits
	minute window
	day    window
	logger *slog.Logger

	now func() time.Time // injectable for tests
}

func NewLimiter(limits Limits, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{limits: limits, logger: logger, now: time.Now}
}

// EstimateTokens approximates prompt cost: ~4 chars per token plus response headroom.
func EstimateTokens(prompt string) int {
	return len(prompt)/4 + 100
}

// Acquire reserves one request and the estimated tokens. It returns false
// without reserving when any budget would be exceeded.
func (l *Limiter) Acquire(estimatedTokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.refresh(now)

	if exceeded(l.minute.requests+1, l.limits.RequestsPerMinute) ||
		exceeded(l.minute.tokens+estimatedTokens, l.limits.TokensPerMinute) ||
		exceeded(l.day.requests+1, l.limits.RequestsPerDay) ||
		exceeded(l.day.tokens+estimatedTokens, l.limits.TokensPerDay) {
		l.logger.Warn("ratelimit.refused",
			"estimated_tokens", estimatedTokens,
			"minute_requests", l.minute.requests,
			"minute_tokens", l.minute.tokens,
			"day_requests", l.day.requests,
			"day_tokens", l.day.tokens,
		)
		return false
	}

	l.minute.requests++
	l.minute.tokens += estimatedTokens
	l.day.requests++
	l.day.tokens += estimatedTokens
	return true
}

// RecordActual replaces an earlier estimate with the provider-reported count.
func (l *Limiter) RecordActual(estimatedTokens, actualTokens int) {
	if actualTokens <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	delta := actualTokens - estimatedTokens
	l.minute.tokens += delta
	l.day.tokens += delta
	if l.minute.tokens < 0 {
		l.minute.tokens = 0
	}
	if l.day.tokens < 0 {
		l.day.tokens = 0
	}
}

func (l *Limiter) refresh(now time.Time) {
	if l.minute.start.IsZero() || now.Sub(l.minute.start) >= time.Minute {
		l.minute = window{start: now}
	}
	if l.day.start.IsZero() || now.Sub(l.day.start) >= 24*time.Hour {
		l.day = window{start: now}
	}
}

func exceeded(used, limit int) bool {
	return limit > 0 && used > limit
}
