package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-chat-assistant/internal/ratelimit"
	"github.com/i474232898/weather-chat-assistant/internal/store"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDailyBudgetAllowsExactlyBudgetCalls(t *testing.T) {
	ctx := context.Background()
	b := ratelimit.NewDailyBudget(store.NewMemoryStore(0), 3, fixedClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)))

	for i := 0; i < 3; i++ {
		ok, err := b.TryConsume(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "call %d should be within budget", i+1)
	}

	ok, err := b.TryConsume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := b.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, ratelimit.Usage{Date: "2024-05-01", Count: 4, Budget: 3, Remaining: 0}, u)
}

func TestDailyBudgetNewDayStartsFresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	b := ratelimit.NewDailyBudget(store.NewMemoryStore(0), 1, func() time.Time { return now })

	ok, err := b.TryConsume(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.TryConsume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = b.TryConsume(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDailyBudgetDefault(t *testing.T) {
	b := ratelimit.NewDailyBudget(store.NewMemoryStore(0), 0, nil)

	u, err := b.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ratelimit.DefaultDailyBudget, u.Budget)
	assert.Equal(t, ratelimit.DefaultDailyBudget, u.Remaining)
}

func TestDailyBudgetConcurrentNeverOverspends(t *testing.T) {
	ctx := context.Background()
	b := ratelimit.NewDailyBudget(store.NewMemoryStore(0), 10, fixedClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	var (
		mu      sync.Mutex
		allowed int
		wg      sync.WaitGroup
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := b.TryConsume(ctx)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

type failingCounter struct{}

func (failingCounter) IncrementCalls(context.Context, string) (int, error) {
	return 0, errors.New("disk full")
}

func (failingCounter) CallCount(context.Context, string) (int, error) {
	return 0, errors.New("disk full")
}

func TestDailyBudgetCounterError(t *testing.T) {
	b := ratelimit.NewDailyBudget(failingCounter{}, 5, nil)

	ok, err := b.TryConsume(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
