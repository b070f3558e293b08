package weather

import (
	"context"
	"time"
)

// CurrentReading is a provider's raw current-weather reading. Temperatures are in Kelvin.
type CurrentReading struct {
	TempKelvin  float64
	Humidity    int
	Description string
	WindSpeed   float64
}

// ForecastReading is one raw 3-hour slot from a provider. Temperatures are in Kelvin.
type ForecastReading struct {
	Timestamp     time.Time
	TempMaxKelvin float64
	Humidity      int
	Description   string
	WindSpeed     float64
}

// PlacesQuery describes a nearby points-of-interest search.
type PlacesQuery struct {
	Center   Coordinates
	Category string
	RadiusM  int
	Limit    int
}

// Geocoder resolves a city name to coordinates. Implementations return ErrCityNotFound
// when the provider has no match.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Coordinates, error)
}

// CurrentProvider returns current conditions for a position.
// Implementations return ErrDataUnavailable when the primary field is missing.
type CurrentProvider interface {
	Current(ctx context.Context, at Coordinates) (CurrentReading, error)
}

// ForecastProvider returns the 3-hour forecast list for a position.
// Implementations return ErrNoForecastData when the list is missing.
type ForecastProvider interface {
	Forecast(ctx context.Context, at Coordinates) ([]ForecastReading, error)
}

// PlacesProvider searches points of interest around a position.
type PlacesProvider interface {
	Places(ctx context.Context, q PlacesQuery) ([]Attraction, error)
}

// Cache is the write-once read-through store for weather and forecast records.
// Lookups are exact-match on the normalized city.
type Cache interface {
	GetWeather(ctx context.Context, city, date string) (WeatherRecord, bool, error)
	PutWeather(ctx context.Context, rec WeatherRecord) error
	GetForecastEntry(ctx context.Context, city string, ts time.Time) (ForecastEntry, bool, error)
	PutForecastEntry(ctx context.Context, e ForecastEntry) error
}

// Limiter gates every outbound call against the daily budget.
type Limiter interface {
	TryConsume(ctx context.Context) (bool, error)
}
