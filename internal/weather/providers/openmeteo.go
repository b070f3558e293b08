package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

var _ weather.Geocoder = (*OpenMeteoGeocoder)(nil)

// OpenMeteoGeocoder resolves city names with Open-Meteo's keyless geocoding API.
type OpenMeteoGeocoder struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoGeocoder(cfg HTTPClientConfig) *OpenMeteoGeocoder {
	return NewOpenMeteoGeocoderWithBaseURL(cfg, openMeteoGeocodingURL)
}

func NewOpenMeteoGeocoderWithBaseURL(cfg HTTPClientConfig, baseURL string) *OpenMeteoGeocoder {
	return &OpenMeteoGeocoder{
		name:    "openmeteo",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: cfg,
		circuit: newBreaker("openmeteo"),
	}
}

func (g *OpenMeteoGeocoder) Name() string {
	return g.name
}

func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	values := url.Values{}
	values.Set("name", city)
	values.Set("count", "1")
	values.Set("language", "en")
	values.Set("format", "json")

	// Open-Meteo omits "results" entirely when nothing matches.
	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
	if err := getJSON(ctx, g.name, g.httpCfg, g.circuit, u, &payload); err != nil {
		return weather.Coordinates{}, err
	}
	if len(payload.Results) == 0 {
		return weather.Coordinates{}, weather.ErrCityNotFound
	}

	return weather.Coordinates{Lat: payload.Results[0].Latitude, Lon: payload.Results[0].Longitude}, nil
}
