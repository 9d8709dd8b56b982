package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicatorRepeatWithinWindow(t *testing.T) {
	d := NewDeduplicator()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, d.IsDuplicate("100", "Ваш пароль сброшен", base))
	assert.True(t, d.IsDuplicate("100", "Ваш пароль сброшен", base.Add(2*time.Second)))
}

func TestDeduplicatorRepeatOutsideWindow(t *testing.T) {
	d := NewDeduplicator()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, d.IsDuplicate("100", "Ваш пароль сброшен", base))
	assert.False(t, d.IsDuplicate("100", "Ваш пароль сброшен", base.Add(10*time.Second)))
}

func TestDeduplicatorScopedToChat(t *testing.T) {
	d := NewDeduplicator()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, d.IsDuplicate("100", "привет", base))
	assert.False(t, d.IsDuplicate("200", "привет", base.Add(time.Second)))
}

func TestDeduplicatorDifferentTexts(t *testing.T) {
	d := NewDeduplicator()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, d.IsDuplicate("100", "первое", base))
	assert.False(t, d.IsDuplicate("100", "второе", base.Add(time.Second)))
}

func TestDeduplicatorHistoryEviction(t *testing.T) {
	d := NewDeduplicator()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// The first message plus ten fillers push the original entry past the
	// history cap, so an immediate repeat is no longer recognized.
	assert.False(t, d.IsDuplicate("100", "оригинал", base))
	for i := 0; i < historyCap; i++ {
		assert.False(t, d.IsDuplicate("100", fmt.Sprintf("филлер %d", i), base))
	}
	assert.False(t, d.IsDuplicate("100", "оригинал", base.Add(time.Second)))
}
