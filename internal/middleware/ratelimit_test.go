package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, span time.Duration) (*Limiter, *time.Time) {
	l := NewLimiter(max, span, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterAdmitsUpToQuota(t *testing.T) {
	l, _ := newTestLimiter(3, time.Hour)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		d := l.Admit("1.2.3.4")
		require.True(t, d.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := l.Admit("1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, d.ResetTime.IsZero())
}

func TestLimiterWindowResets(t *testing.T) {
	l, now := newTestLimiter(1, time.Hour)
	defer l.Stop()

	require.True(t, l.Admit("1.2.3.4").Allowed)
	require.False(t, l.Admit("1.2.3.4").Allowed)

	// counts do not decay mid-window
	*now = now.Add(59 * time.Minute)
	assert.False(t, l.Admit("1.2.3.4").Allowed)

	*now = now.Add(2 * time.Minute)
	d := l.Admit("1.2.3.4")
	assert.True(t, d.Allowed, "first request after expiry opens a fresh window")
	assert.Equal(t, now.Add(time.Hour), d.ResetTime)
}

func TestLimiterIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Hour)
	defer l.Stop()

	require.True(t, l.Admit("1.2.3.4").Allowed)
	require.False(t, l.Admit("1.2.3.4").Allowed)
	assert.True(t, l.Admit("5.6.7.8").Allowed)
}

func TestLimiterStopIsIdempotent(t *testing.T) {
	l := NewLimiter(1, time.Hour, time.Hour)
	l.Stop()
	l.Stop()
}
