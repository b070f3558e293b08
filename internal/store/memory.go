package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

type weatherKey struct {
	city string
	date string
}

type forecastKeyT struct {
	city string
	slot string
}

// MemoryStore is a concurrency-safe in-memory implementation of the record store.
// Records follow the same write-once rules as SQLiteStore.
type MemoryStore struct {
	mu sync.RWMutex

	weather  map[weatherKey]weather.WeatherRecord
	forecast map[forecastKeyT]weather.ForecastEntry
	calls    map[string]int

	// key: session id, value: turns in insertion order
	turns map[string][]chat.Turn

	// maxTurns caps the history kept per session (0 = unlimited).
	maxTurns int
}

// NewMemoryStore creates a new MemoryStore. If maxTurns is <= 0 it is treated as unlimited.
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		weather:  make(map[weatherKey]weather.WeatherRecord),
		forecast: make(map[forecastKeyT]weather.ForecastEntry),
		calls:    make(map[string]int),
		turns:    make(map[string][]chat.Turn),
		maxTurns: maxTurns,
	}
}

func (s *MemoryStore) GetWeather(_ context.Context, city, date string) (weather.WeatherRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.weather[weatherKey{city, date}]
	return r, ok, nil
}

func (s *MemoryStore) PutWeather(_ context.Context, rec weather.WeatherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := weatherKey{rec.City, rec.Date}
	if _, exists := s.weather[k]; !exists {
		s.weather[k] = rec
	}
	return nil
}

func (s *MemoryStore) GetForecastEntry(_ context.Context, city string, ts time.Time) (weather.ForecastEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.forecast[forecastKeyT{city, forecastKey(ts)}]
	return e, ok, nil
}

func (s *MemoryStore) PutForecastEntry(_ context.Context, e weather.ForecastEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Timestamp = e.Timestamp.UTC()
	k := forecastKeyT{e.City, forecastKey(e.Timestamp)}
	if _, exists := s.forecast[k]; !exists {
		s.forecast[k] = e
	}
	return nil
}

func (s *MemoryStore) IncrementCalls(_ context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[day]++
	return s.calls[day], nil
}

func (s *MemoryStore) CallCount(_ context.Context, day string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.calls[day], nil
}

// AppendTurn appends a turn and enforces the per-session retention cap.
func (s *MemoryStore) AppendTurn(_ context.Context, t chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.turns[t.SessionID], t)
	if s.maxTurns > 0 && len(history) > s.maxTurns {
		over := len(history) - s.maxTurns
		history = history[over:]
	}
	s.turns[t.SessionID] = history
	return nil
}

func (s *MemoryStore) Turns(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.turns[sessionID]
	out := make([]chat.Turn, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) ClearTurns(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, sessionID)
	return nil
}

// Prune drops everything older than cutoff's calendar day.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (PruneResult, error) {
	day := cutoff.Format(weather.DateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	var res PruneResult
	for k := range s.weather {
		if k.date < day {
			delete(s.weather, k)
			res.Weather++
		}
	}
	for k := range s.forecast {
		if k.slot < day {
			delete(s.forecast, k)
			res.Forecast++
		}
	}
	for d := range s.calls {
		if d < day {
			delete(s.calls, d)
			res.Counters++
		}
	}
	for id, history := range s.turns {
		i := 0
		for ; i < len(history); i++ {
			if !history[i].Timestamp.Before(cutoff) {
				break
			}
		}
		res.Turns += int64(i)
		if i == len(history) {
			delete(s.turns, id)
		} else if i > 0 {
			s.turns[id] = history[i:]
		}
	}
	return res, nil
}
