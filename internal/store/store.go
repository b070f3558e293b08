// Package store holds the record stores behind the weather cache, the daily call
// counter and the chat history.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/ratelimit"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// PruneResult counts the rows removed by a retention pass.
type PruneResult struct {
	Weather  int64
	Forecast int64
	Counters int64
	Turns    int64
}

// Store is everything the application needs from persistence.
type Store interface {
	weather.Cache
	ratelimit.Counter
	chat.History
	Prune(ctx context.Context, cutoff time.Time) (PruneResult, error)
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Open returns the store selected by driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverSQLite:
		return NewSQLite(path)
	case DriverMemory:
		return NewMemoryStore(0), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
