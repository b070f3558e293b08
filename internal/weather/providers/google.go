package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const (
	staticMapBaseURL = "https://maps.googleapis.com/maps/api/staticmap"
	staticMapZoom    = 14
	staticMapSize    = "600x300"
)

var _ weather.Geocoder = (*GoogleGeocoder)(nil)

// googleZeroResults is the message the geocoder library uses for a ZERO_RESULTS status.
const googleZeroResults = "No results found."

// GoogleGeocoder resolves cities with the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
}

// NewGoogleGeocoder sets the library's package-level key, so build at most one per process.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &GoogleGeocoder{apiKey: apiKey}
}

// Geocode runs the blocking library call in a goroutine so the caller's deadline still applies.
func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("google geocoding api key is not configured")
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)

	go func() {
		// An unrecognized status with no results makes the library index an empty slice.
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("google geocoding: %v", p)}
			}
		}()
		loc, err := geocoder.Geocoding(geocoder.Address{City: city})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, classifyTransportError(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, classifyGoogleError(r.err)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}

// classifyGoogleError maps only a ZERO_RESULTS answer to ErrCityNotFound.
func classifyGoogleError(err error) error {
	if err.Error() == googleZeroResults {
		return fmt.Errorf("%w: %v", weather.ErrCityNotFound, err)
	}
	return fmt.Errorf("google geocoding: %w", classifyTransportError(err))
}

// StaticMap builds Google Static Maps image links. The link is only referenced by the page, never fetched.
type StaticMap struct {
	APIKey string
}

// MapURL returns the image URL centred on at.
func (m StaticMap) MapURL(at weather.Coordinates) string {
	values := url.Values{}
	values.Set("center", formatCoord(at.Lat)+","+formatCoord(at.Lon))
	values.Set("zoom", strconv.Itoa(staticMapZoom))
	values.Set("size", staticMapSize)
	values.Set("key", m.APIKey)
	return staticMapBaseURL + "?" + values.Encode()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
