package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-chat-assistant/internal/common"
)

const (
	// AttractionCategory is the fixed places category searched around a city.
	AttractionCategory = "tourism.sights"
	// AttractionRadiusM is the search radius in metres.
	AttractionRadiusM = 5000
	// AttractionLimit caps the number of places returned.
	AttractionLimit = 5

	defaultCallTimeout = 8 * time.Second
)

// Providers bundles the external data sources the service composes.
type Providers struct {
	Geocoder Geocoder
	Current  CurrentProvider
	Forecast ForecastProvider
	Places   PlacesProvider
}

// Service fetches weather, forecasts and attractions through the cache and the daily budget.
type Service struct {
	cache     Cache
	limiter   Limiter
	providers Providers
	log       *zap.SugaredLogger

	timeout time.Duration
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for cache day keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCallTimeout bounds each fetch operation, including geocoding.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates a new Service.
func NewService(cache Cache, limiter Limiter, providers Providers, log *zap.SugaredLogger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		cache:     cache,
		limiter:   limiter,
		providers: providers,
		log:       log,
		timeout:   defaultCallTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the cache day key for the current moment.
func (s *Service) Today() string {
	return s.now().Format(DateLayout)
}

// FetchWeather returns today's weather for city. A same-day cache hit is served
// without touching the budget; coords skip geocoding when provided.
func (s *Service) FetchWeather(ctx context.Context, city string, coords *Coordinates) (WeatherView, error) {
	city = common.NormalizeCity(city)
	today := s.Today()

	cached, ok, err := s.cache.GetWeather(ctx, city, today)
	if err != nil {
		return WeatherView{}, fmt.Errorf("weather cache lookup: %w", err)
	}
	if ok {
		s.log.Debugw("weather cache hit", "city", city, "date", today)
		return cached.view(true), nil
	}

	if err := s.consume(ctx); err != nil {
		return WeatherView{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at, err := s.resolve(ctx, city, coords)
	if err != nil {
		return WeatherView{}, err
	}

	reading, err := s.providers.Current.Current(ctx, at)
	if err != nil {
		return WeatherView{}, fmt.Errorf("current weather for %q: %w", city, err)
	}

	rec := WeatherRecord{
		City:        city,
		Date:        today,
		Temperature: KelvinToCelsius(reading.TempKelvin),
		Humidity:    reading.Humidity,
		Description: reading.Description,
		WindSpeed:   reading.WindSpeed,
		Lat:         at.Lat,
		Lon:         at.Lon,
	}
	if err := s.cache.PutWeather(ctx, rec); err != nil {
		// The live reading is still good; the next request simply misses again.
		s.log.Warnw("weather cache write failed", "city", city, "error", err)
	}

	return rec.view(false), nil
}

// FetchForecast returns the full 3-hour forecast list for city. Each entry is
// read through the forecast cache so values never change once stored.
func (s *Service) FetchForecast(ctx context.Context, city string, coords *Coordinates) (ForecastView, error) {
	city = common.NormalizeCity(city)

	if err := s.consume(ctx); err != nil {
		return ForecastView{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at, err := s.resolve(ctx, city, coords)
	if err != nil {
		return ForecastView{}, err
	}

	readings, err := s.providers.Forecast.Forecast(ctx, at)
	if err != nil {
		return ForecastView{}, fmt.Errorf("forecast for %q: %w", city, err)
	}
	if len(readings) == 0 {
		return ForecastView{}, ErrNoForecastData
	}

	entries := make([]ForecastEntry, 0, len(readings))
	for _, r := range readings {
		ts := r.Timestamp.UTC()

		existing, ok, err := s.cache.GetForecastEntry(ctx, city, ts)
		if err != nil {
			return ForecastView{}, fmt.Errorf("forecast cache lookup: %w", err)
		}
		if ok {
			entries = append(entries, existing)
			continue
		}

		e := ForecastEntry{
			City:        city,
			Timestamp:   ts,
			TempMax:     KelvinToCelsius(r.TempMaxKelvin),
			Humidity:    r.Humidity,
			Description: r.Description,
			WindSpeed:   r.WindSpeed,
			Lat:         at.Lat,
			Lon:         at.Lon,
		}
		if err := s.cache.PutForecastEntry(ctx, e); err != nil {
			s.log.Warnw("forecast cache write failed", "city", city, "slot", ts, "error", err)
		}
		entries = append(entries, e)
	}

	return ForecastView{City: city, Coord: at, Entries: entries}, nil
}

// FetchAttractions returns up to AttractionLimit sights around at. Results are never cached.
func (s *Service) FetchAttractions(ctx context.Context, at Coordinates) ([]Attraction, error) {
	if err := s.consume(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	places, err := s.providers.Places.Places(ctx, PlacesQuery{
		Center:   at,
		Category: AttractionCategory,
		RadiusM:  AttractionRadiusM,
		Limit:    AttractionLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("attractions near %.4f,%.4f: %w", at.Lat, at.Lon, err)
	}
	if len(places) > AttractionLimit {
		places = places[:AttractionLimit]
	}
	return places, nil
}

func (s *Service) consume(ctx context.Context) error {
	ok, err := s.limiter.TryConsume(ctx)
	if err != nil {
		return fmt.Errorf("call budget: %w", err)
	}
	if !ok {
		s.log.Warnw("daily call budget exhausted")
		return ErrRateLimitExceeded
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, city string, coords *Coordinates) (Coordinates, error) {
	if coords != nil {
		return *coords, nil
	}
	if city == "" {
		return Coordinates{}, ErrCityNotFound
	}
	at, err := s.providers.Geocoder.Geocode(ctx, city)
	if err != nil {
		if !errors.Is(err, ErrCityNotFound) {
			s.log.Warnw("geocoding failed", "city", city, "error", err)
		}
		return Coordinates{}, fmt.Errorf("geocode %q: %w", city, err)
	}
	return at, nil
}
