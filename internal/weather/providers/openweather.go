package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const (
	openWeatherName    = "openweathermap"
	openWeatherBaseURL = "https://api.openweathermap.org"
)

var (
	_ weather.Geocoder         = (*OpenWeatherProvider)(nil)
	_ weather.CurrentProvider  = (*OpenWeatherProvider)(nil)
	_ weather.ForecastProvider = (*OpenWeatherProvider)(nil)
)

// OpenWeatherProvider talks to OpenWeatherMap's geocoding, current weather and
// 5-day/3-hour forecast endpoints. Readings are requested in the API's default
// units, so temperatures arrive in Kelvin.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider builds a provider against the public API.
func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return NewOpenWeatherProviderWithBaseURL(cfg, apiKey, openWeatherBaseURL)
}

// NewOpenWeatherProviderWithBaseURL points the provider at another host (tests, proxies).
func NewOpenWeatherProviderWithBaseURL(cfg HTTPClientConfig, apiKey, baseURL string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    openWeatherName,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: cfg,
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Geocode resolves a city with the direct geocoding endpoint, best match only.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	if err := p.checkKey(); err != nil {
		return weather.Coordinates{}, err
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var payload []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
	}
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, p.endpoint("/geo/1.0/direct", values), &payload); err != nil {
		return weather.Coordinates{}, err
	}
	if len(payload) == 0 {
		return weather.Coordinates{}, weather.ErrCityNotFound
	}

	return weather.Coordinates{Lat: payload[0].Lat, Lon: payload[0].Lon}, nil
}

// Current fetches current conditions by coordinates.
func (p *OpenWeatherProvider) Current(ctx context.Context, at weather.Coordinates) (weather.CurrentReading, error) {
	if err := p.checkKey(); err != nil {
		return weather.CurrentReading{}, err
	}

	var payload struct {
		Main *struct {
			Temp     *float64 `json:"temp"`
			Humidity int      `json:"humidity"`
		} `json:"main"`
		Wind *struct {
			Speed *float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, p.endpoint("/data/2.5/weather", p.coordValues(at)), &payload); err != nil {
		return weather.CurrentReading{}, err
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return weather.CurrentReading{}, weather.ErrDataUnavailable
	}

	reading := weather.CurrentReading{
		TempKelvin: *payload.Main.Temp,
		Humidity:   payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		reading.Description = payload.Weather[0].Description
	}
	if payload.Wind != nil && payload.Wind.Speed != nil {
		reading.WindSpeed = *payload.Wind.Speed
	}
	return reading, nil
}

// Forecast fetches the 5-day / 3-hour forecast list by coordinates.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, at weather.Coordinates) ([]weather.ForecastReading, error) {
	if err := p.checkKey(); err != nil {
		return nil, err
	}

	var payload struct {
		List *[]struct {
			Dt    int64  `json:"dt"`
			DtTxt string `json:"dt_txt"`
			Main  struct {
				TempMax  float64 `json:"temp_max"`
				Humidity int     `json:"humidity"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
			Wind *struct {
				Speed *float64 `json:"speed"`
			} `json:"wind"`
		} `json:"list"`
	}
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, p.endpoint("/data/2.5/forecast", p.coordValues(at)), &payload); err != nil {
		return nil, err
	}
	if payload.List == nil {
		return nil, weather.ErrNoForecastData
	}

	readings := make([]weather.ForecastReading, 0, len(*payload.List))
	for _, item := range *payload.List {
		ts, err := time.ParseInLocation(weather.ForecastLayout, item.DtTxt, time.UTC)
		if err != nil {
			ts = time.Unix(item.Dt, 0).UTC()
		}

		r := weather.ForecastReading{
			Timestamp:     ts,
			TempMaxKelvin: item.Main.TempMax,
			Humidity:      item.Main.Humidity,
		}
		if len(item.Weather) > 0 {
			r.Description = item.Weather[0].Description
		}
		if item.Wind != nil && item.Wind.Speed != nil {
			r.WindSpeed = *item.Wind.Speed
		}
		readings = append(readings, r)
	}

	return readings, nil
}

func (p *OpenWeatherProvider) checkKey() error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}
	return nil
}

func (p *OpenWeatherProvider) coordValues(at weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", formatCoord(at.Lat))
	values.Set("lon", formatCoord(at.Lon))
	values.Set("appid", p.apiKey)
	return values
}

func (p *OpenWeatherProvider) endpoint(path string, values url.Values) string {
	return fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
}
