package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

func TestDoRequestStatusError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var out map[string]any
	err := getJSON(context.Background(), "test", DefaultHTTPConfig(srv.Client(), 2), newBreaker("t1"), srv.URL, &out)

	var pe *weather.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, int32(1), hits.Load(), "4xx must not be retried")
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig(srv.Client(), 1)
	cfg.Backoff.InitialInterval = time.Millisecond

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, getJSON(context.Background(), "test", cfg, newBreaker("t2"), srv.URL, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDoRequestNoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var out map[string]any
	err := getJSON(context.Background(), "test", DefaultHTTPConfig(srv.Client(), 0), newBreaker("t3"), srv.URL, &out)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDoRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out map[string]any
	err := getJSON(ctx, "test", DefaultHTTPConfig(srv.Client(), 0), newBreaker("t4"), srv.URL, &out)
	assert.ErrorIs(t, err, weather.ErrProviderTimeout)
}

func TestDoRequestWithoutClient(t *testing.T) {
	_, err := doRequestWithResilience(context.Background(), "test", HTTPClientConfig{}, newBreaker("t5"), nil)
	assert.ErrorIs(t, err, errNoHTTPClient)
}
