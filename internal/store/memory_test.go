package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

func TestMemoryStoreWeatherIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.PutWeather(ctx, weather.WeatherRecord{City: "paris", Date: "2024-05-01", Temperature: 18}))
	require.NoError(t, s.PutWeather(ctx, weather.WeatherRecord{City: "paris", Date: "2024-05-01", Temperature: 30}))

	got, ok, err := s.GetWeather(ctx, "paris", "2024-05-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 18.0, got.Temperature)

	_, ok, err = s.GetWeather(ctx, "Paris", "2024-05-01")
	require.NoError(t, err)
	assert.False(t, ok, "lookups are exact-match")
}

func TestMemoryStoreForecastKeyIsUTC(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutForecastEntry(ctx, weather.ForecastEntry{City: "rome", Timestamp: ts.In(time.FixedZone("X", 3600)), TempMax: 20}))

	got, ok, err := s.GetForecastEntry(ctx, "rome", ts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
}

func TestMemoryStoreIncrementCallsConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementCalls(ctx, "2024-05-01")
		}()
	}
	wg.Wait()

	n, err := s.CallCount(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestMemoryStoreTurnRetention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendTurn(ctx, chat.Turn{
			ID:        fmt.Sprint(i),
			SessionID: "s1",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	turns, err := s.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "2", turns[0].ID)

	require.NoError(t, s.ClearTurns(ctx, "s1"))
	turns, err = s.Turns(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryStorePrune(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	old := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	fresh := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutWeather(ctx, weather.WeatherRecord{City: "oslo", Date: "2024-04-01"}))
	require.NoError(t, s.PutWeather(ctx, weather.WeatherRecord{City: "oslo", Date: "2024-05-01"}))
	require.NoError(t, s.PutForecastEntry(ctx, weather.ForecastEntry{City: "oslo", Timestamp: old}))
	_, _ = s.IncrementCalls(ctx, "2024-04-01")
	require.NoError(t, s.AppendTurn(ctx, chat.Turn{ID: "1", SessionID: "s", Timestamp: old}))
	require.NoError(t, s.AppendTurn(ctx, chat.Turn{ID: "2", SessionID: "s", Timestamp: fresh}))

	res, err := s.Prune(ctx, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, PruneResult{Weather: 1, Forecast: 1, Counters: 1, Turns: 1}, res)

	turns, err := s.Turns(ctx, "s")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "2", turns[0].ID)
}
