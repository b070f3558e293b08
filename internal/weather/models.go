package weather

import (
	"math"
	"time"
)

const (
	// DateLayout is the day-granularity key used by the weather cache and call counter.
	DateLayout = "2006-01-02"
	// ForecastLayout matches the provider's dt_txt field and the forecast cache key.
	ForecastLayout = "2006-01-02 15:04:05"

	kelvinOffset = 273.15
)

// Coordinates is a resolved geographic position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherRecord is one cached current-weather observation, unique per (city, date).
type WeatherRecord struct {
	City        string  `json:"city"`
	Date        string  `json:"date"`
	Temperature float64 `json:"temperatureC"`
	Humidity    int     `json:"humidityPercent"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"windSpeed"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// ForecastEntry is one cached 3-hour forecast slot, unique per (city, timestamp).
type ForecastEntry struct {
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	TempMax     float64   `json:"tempMaxC"`
	Humidity    int       `json:"humidityPercent"`
	Description string    `json:"description"`
	WindSpeed   float64   `json:"windSpeed"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
}

// WeatherView is what FetchWeather hands to callers.
type WeatherView struct {
	City        string      `json:"city"`
	Temperature float64     `json:"temperatureC"`
	Humidity    int         `json:"humidityPercent"`
	Description string      `json:"description"`
	WindSpeed   float64     `json:"windSpeed"`
	Coord       Coordinates `json:"coord"`
	Cached      bool        `json:"cached"`
}

// WindSpeedKmh converts the m/s wind speed for display.
func (v WeatherView) WindSpeedKmh() float64 {
	return round1(v.WindSpeed * 3.6)
}

// ForecastView is the undigested 3-hour forecast list for a city.
type ForecastView struct {
	City    string          `json:"city"`
	Coord   Coordinates     `json:"coord"`
	Entries []ForecastEntry `json:"forecasts"`
}

// Attraction is a named point of interest near a location.
type Attraction struct {
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (r WeatherRecord) view(cached bool) WeatherView {
	return WeatherView{
		City:        r.City,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Description: r.Description,
		WindSpeed:   r.WindSpeed,
		Coord:       Coordinates{Lat: r.Lat, Lon: r.Lon},
		Cached:      cached,
	}
}

// KelvinToCelsius converts and rounds to one decimal place.
func KelvinToCelsius(k float64) float64 {
	return round1(k - kelvinOffset)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
