package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterFirstPushAllowed(t *testing.T) {
	r := NewRateLimiter()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, r.ShouldPush("100", 1, now))
}

func TestRateLimiterThrottlesWithinInterval(t *testing.T) {
	r := NewRateLimiter()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, r.ShouldPush("100", 1, base))
	assert.False(t, r.ShouldPush("100", 1, base.Add(30*time.Minute)))
	assert.False(t, r.ShouldPush("100", 1, base.Add(time.Hour)))
	assert.True(t, r.ShouldPush("100", 1, base.Add(time.Hour+time.Second)))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	r := NewRateLimiter()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, r.ShouldPush("100", 1, base))
	assert.True(t, r.ShouldPush("100", 2, base))
	assert.True(t, r.ShouldPush("200", 1, base))
	assert.False(t, r.ShouldPush("100", 1, base.Add(time.Minute)))
}

func TestRateLimiterAdvancesOnAllow(t *testing.T) {
	r := NewRateLimiter()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, r.ShouldPush("100", 1, base))
	later := base.Add(2 * time.Hour)
	assert.True(t, r.ShouldPush("100", 1, later))
	// The allowed push above moved the window, throttling resumes from it.
	assert.False(t, r.ShouldPush("100", 1, later.Add(10*time.Minute)))
}
