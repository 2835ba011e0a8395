package ratelimit

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limits Limits) (*Limiter, *time.Time) {
	l := NewLimiter(limits, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 100, EstimateTokens(""))
	assert.Equal(t, 101, EstimateTokens("abcd"))
	assert.Equal(t, 1100, EstimateTokens(strings.Repeat("x", 4000)))
}

func TestAcquireRequestBudget(t *testing.T) {
	l, _ := newTestLimiter(Limits{RequestsPerMinute: 2})

	assert.True(t, l.Acquire(10))
	assert.True(t, l.Acquire(10))
	assert.False(t, l.Acquire(10), "third request in the minute exceeds the budget")
}

func TestAcquireTokenBudget(t *testing.T) {
	l, _ := newTestLimiter(Limits{TokensPerMinute: 1000})

	assert.True(t, l.Acquire(600))
	assert.False(t, l.Acquire(600), "would put the window over its token cap")
	assert.True(t, l.Acquire(400), "a refused acquire must not consume budget")
}

func TestAcquireWindowRefresh(t *testing.T) {
	l, now := newTestLimiter(Limits{RequestsPerMinute: 1, RequestsPerDay: 2})

	assert.True(t, l.Acquire(10))
	assert.False(t, l.Acquire(10))

	*now = now.Add(time.Minute)
	assert.True(t, l.Acquire(10), "fresh minute window")

	*now = now.Add(time.Minute)
	assert.False(t, l.Acquire(10), "day budget still counts across minute windows")

	*now = now.Add(24 * time.Hour)
	assert.True(t, l.Acquire(10), "fresh day window")
}

func TestAcquireUnlimited(t *testing.T) {
	l, _ := newTestLimiter(Limits{})
	for i := 0; i < 100; i++ {
		assert.True(t, l.Acquire(1_000_000))
	}
}

func TestRecordActual(t *testing.T) {
	l, _ := newTestLimiter(Limits{TokensPerMinute: 1000})

	assert.True(t, l.Acquire(900))
	l.RecordActual(900, 100)

	assert.True(t, l.Acquire(800), "reconciling down frees budget")

	l.RecordActual(800, 900)
	assert.False(t, l.Acquire(200), "reconciling up consumes it")
}

func TestRecordActualIgnoresNonPositive(t *testing.T) {
	l, _ := newTestLimiter(Limits{TokensPerMinute: 100})
	assert.True(t, l.Acquire(100))

	l.RecordActual(100, 0)
	assert.False(t, l.Acquire(50), "zero report leaves the estimate in place")
}
