package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BlocksAfterBudget(t *testing.T) {
	l := New(NewMemoryCounter(), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4:/send-request")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, err := l.Allow(ctx, "1.2.3.4:/send-request")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "5.6.7.8:/send-request")
	assert.True(t, ok)
}

func TestLimiter_NewWindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	counter := NewMemoryCounter()
	counter.now = func() time.Time { return now }
	l := New(counter, 1, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(NewMemoryCounter(), 0, time.Minute)
	for i := 0; i < 10; i++ {
		ok, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestLimiter_FailsOpen(t *testing.T) {
	ok, err := New(failingCounter{}, 1, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestMemoryCounter_DropsExpiredWindows(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	counter := NewMemoryCounter()
	counter.now = func() time.Time { return now }
	l := New(counter, 5, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := l.Allow(ctx, "1.2.3.4:/send-request")
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}
	assert.LessOrEqual(t, len(counter.windows), 2)

	ok, err := l.Allow(ctx, "1.2.3.4:/send-request")
	require.NoError(t, err)
	assert.True(t, ok)
}
