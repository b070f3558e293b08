package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-chat-assistant/internal/store"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const (
	pruneAt   = "03:00"
	warmAt    = "00:05"
	jobBudget = 2 * time.Minute
)

// Pruner drops records older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (store.PruneResult, error)
}

// Warmer fetches today's weather for a city, filling the cache.
type Warmer interface {
	FetchWeather(ctx context.Context, city string, coords *weather.Coordinates) (weather.WeatherView, error)
}

// Config controls which maintenance jobs run.
type Config struct {
	RetentionDays int
	WarmCities    []string
	Location      *time.Location
}

// Scheduler runs the nightly cache maintenance jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pruner    Pruner
	warmer    Warmer
	cfg       Config
	log       *zap.SugaredLogger
	now       func() time.Time
}

// New creates a new Scheduler.
func New(cfg Config, pruner Pruner, warmer Warmer, log *zap.SugaredLogger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		pruner:    pruner,
		warmer:    warmer,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Start schedules the configured jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	scheduled := 0

	if s.cfg.RetentionDays > 0 && s.pruner != nil {
		if _, err := s.scheduler.Every(1).Day().At(pruneAt).SingletonMode().Do(s.PruneOnce); err != nil {
			return err
		}
		scheduled++
	}

	if len(s.cfg.WarmCities) > 0 && s.warmer != nil {
		if _, err := s.scheduler.Every(1).Day().At(warmAt).SingletonMode().Do(s.WarmOnce); err != nil {
			return err
		}
		scheduled++
	}

	if scheduled == 0 {
		s.log.Info("scheduler: no maintenance jobs configured; nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	return nil
}

// PruneOnce deletes everything older than the retention window.
func (s *Scheduler) PruneOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), jobBudget)
	defer cancel()

	cutoff := s.now().In(s.cfg.Location).AddDate(0, 0, -s.cfg.RetentionDays)
	res, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		s.log.Errorw("scheduler: prune failed", "error", err)
		return
	}
	s.log.Infow("scheduler: pruned old records",
		"cutoff", cutoff.Format(weather.DateLayout),
		"weather", res.Weather,
		"forecast", res.Forecast,
		"counters", res.Counters,
		"turns", res.Turns,
	)
}

// WarmOnce fetches today's weather for every configured city in parallel.
// It stops early once the daily budget is exhausted.
func (s *Scheduler) WarmOnce() {
	s.log.Info("scheduler: running cache warm-up job")

	ctx, cancel := context.WithTimeout(context.Background(), jobBudget)
	defer cancel()

	var wg sync.WaitGroup
	for _, city := range s.cfg.WarmCities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := s.warmer.FetchWeather(ctx, city, nil); err != nil {
				if errors.Is(err, weather.ErrRateLimitExceeded) {
					cancel()
				}
				s.log.Warnw("scheduler: warm-up failed", "city", city, "error", err)
			}
		}()
	}
	wg.Wait()
	s.log.Info("scheduler: completed cache warm-up job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
