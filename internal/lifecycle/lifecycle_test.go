package lifecycle

import (
	"regexp"
	"testing"
	"time"

	"mediradar-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.RequestStatus
		want     bool
	}{
		{models.StatusPending, models.StatusReserved, true},
		{models.StatusPending, models.StatusAvailable, true},
		{models.StatusPending, models.StatusUnavailable, false},
		{models.StatusReserved, models.StatusAvailable, true},
		{models.StatusReserved, models.StatusUnavailable, true},
		{models.StatusReserved, models.StatusPending, false},
		{models.StatusAvailable, models.StatusReserved, false},
		{models.StatusUnavailable, models.StatusReserved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPolicy_ExtendedHoldNeverMovesBack(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	future := now.Add(40 * time.Minute)
	assert.Equal(t, future.Add(15*time.Minute), p.ExtendedHold(&future, now))

	past := now.Add(-2 * time.Hour)
	assert.Equal(t, now.Add(15*time.Minute), p.ExtendedHold(&past, now))

	assert.Equal(t, now.Add(15*time.Minute), p.ExtendedHold(nil, now))
}

func TestPolicy_ReserveUntil(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), p.ReserveUntil(now))
}

func TestPolicy_UsedTodayUsesPolicyZone(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)
	p := Policy{Reserve: time.Hour, Extend: 15 * time.Minute, Location: athens}

	// 22:30 UTC on May 10 is already May 11 in Athens.
	now := time.Date(2024, 5, 10, 22, 30, 0, 0, time.UTC)
	today := p.Today(now)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), today)

	assert.True(t, p.UsedToday(&today, now))
	yesterday := today.AddDate(0, 0, -1)
	assert.False(t, p.UsedToday(&yesterday, now))
	assert.False(t, p.UsedToday(nil, now))
}

func TestNewStatusToken(t *testing.T) {
	re := regexp.MustCompile(`^[a-z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		tok, err := NewStatusToken()
		require.NoError(t, err)
		assert.Regexp(t, re, tok)
		seen[tok] = true
	}
	assert.Greater(t, len(seen), 195)
}
