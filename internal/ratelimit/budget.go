// Package ratelimit enforces the global daily budget of outbound provider calls.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

// DefaultDailyBudget is the provider plan's daily allowance shared by every API.
const DefaultDailyBudget = 1000

// Counter persists one call counter per calendar day.
type Counter interface {
	// IncrementCalls adds one to the day's counter, creating it at zero first, and returns the new count.
	IncrementCalls(ctx context.Context, day string) (int, error)
	CallCount(ctx context.Context, day string) (int, error)
}

// Usage is a snapshot of the current day's consumption.
type Usage struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Budget    int    `json:"budget"`
	Remaining int    `json:"remaining"`
}

var _ weather.Limiter = (*DailyBudget)(nil)

// DailyBudget counts calls per calendar day against a fixed budget. A new day
// starts a new counter row; there is no reset operation.
type DailyBudget struct {
	mu      sync.Mutex
	counter Counter
	budget  int
	now     func() time.Time
}

// NewDailyBudget creates a limiter; budget <= 0 falls back to DefaultDailyBudget.
// now may be nil, in which case time.Now is used.
func NewDailyBudget(counter Counter, budget int, now func() time.Time) *DailyBudget {
	if budget <= 0 {
		budget = DefaultDailyBudget
	}
	if now == nil {
		now = time.Now
	}
	return &DailyBudget{counter: counter, budget: budget, now: now}
}

// TryConsume records one call and reports whether it is within budget. The call
// that overflows the budget is still counted.
func (b *DailyBudget) TryConsume(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, err := b.counter.IncrementCalls(ctx, b.today())
	if err != nil {
		return false, fmt.Errorf("increment call counter: %w", err)
	}
	return count <= b.budget, nil
}

// Usage reports today's counter without consuming budget.
func (b *DailyBudget) Usage(ctx context.Context) (Usage, error) {
	day := b.today()
	count, err := b.counter.CallCount(ctx, day)
	if err != nil {
		return Usage{}, fmt.Errorf("read call counter: %w", err)
	}
	remaining := b.budget - count
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Date: day, Count: count, Budget: b.budget, Remaining: remaining}, nil
}

func (b *DailyBudget) today() string {
	return b.now().Format(weather.DateLayout)
}
