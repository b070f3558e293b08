package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const (
	geoapifyBaseURL  = "https://api.geoapify.com"
	unnamedPlaceName = "Unnamed place"
)

var _ weather.PlacesProvider = (*GeoapifyProvider)(nil)

// GeoapifyProvider searches points of interest with the Geoapify Places API.
type GeoapifyProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGeoapifyProvider(cfg HTTPClientConfig, apiKey string) *GeoapifyProvider {
	return NewGeoapifyProviderWithBaseURL(cfg, apiKey, geoapifyBaseURL)
}

func NewGeoapifyProviderWithBaseURL(cfg HTTPClientConfig, apiKey, baseURL string) *GeoapifyProvider {
	return &GeoapifyProvider{
		name:    "geoapify",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: cfg,
		circuit: newBreaker("geoapify"),
	}
}

func (p *GeoapifyProvider) Name() string {
	return p.name
}

// Places queries a circle filter around q.Center. Non-success statuses surface as *weather.ProviderError.
func (p *GeoapifyProvider) Places(ctx context.Context, q weather.PlacesQuery) ([]weather.Attraction, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("geoapify api key is not configured")
	}

	values := url.Values{}
	values.Set("categories", q.Category)
	// Geoapify circles are lon,lat,radius.
	values.Set("filter", fmt.Sprintf("circle:%s,%s,%d", formatCoord(q.Center.Lon), formatCoord(q.Center.Lat), q.RadiusM))
	values.Set("limit", strconv.Itoa(q.Limit))
	values.Set("apiKey", p.apiKey)

	var payload struct {
		Features []struct {
			Properties struct {
				Name      string  `json:"name"`
				Formatted string  `json:"formatted"`
				Lat       float64 `json:"lat"`
				Lon       float64 `json:"lon"`
			} `json:"properties"`
		} `json:"features"`
	}
	u := fmt.Sprintf("%s/v2/places?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, err
	}

	out := make([]weather.Attraction, 0, len(payload.Features))
	for _, f := range payload.Features {
		name := f.Properties.Name
		if name == "" {
			name = unnamedPlaceName
		}
		out = append(out, weather.Attraction{
			Name:    name,
			Address: f.Properties.Formatted,
			Lat:     f.Properties.Lat,
			Lon:     f.Properties.Lon,
		})
	}
	return out, nil
}
