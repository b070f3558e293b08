package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitExceeded is returned once the daily call budget is spent.
	ErrRateLimitExceeded = errors.New("daily api limit reached")
	// ErrCityNotFound is returned when geocoding yields no match.
	ErrCityNotFound = errors.New("city not found")
	// ErrDataUnavailable is returned when a current-weather response lacks its temperature.
	ErrDataUnavailable = errors.New("weather data not available")
	// ErrNoForecastData is returned when a forecast response lacks its entry list.
	ErrNoForecastData = errors.New("no forecast data available")
	// ErrProviderTimeout is returned when an outbound call exceeds its deadline.
	ErrProviderTimeout = errors.New("provider timed out")
)

// ProviderError reports a non-success HTTP status from an external provider.
type ProviderError struct {
	Provider string
	Status   int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.Status)
}
