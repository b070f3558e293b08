package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/ratelimit"
	"github.com/i474232898/weather-chat-assistant/internal/session"
	"github.com/i474232898/weather-chat-assistant/internal/store"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

type stubFetcher struct{}

func (stubFetcher) FetchWeather(_ context.Context, city string, _ *weather.Coordinates) (weather.WeatherView, error) {
	if city == "atlantis" {
		return weather.WeatherView{}, weather.ErrCityNotFound
	}
	return weather.WeatherView{City: city, Temperature: 21.4, Humidity: 40, Description: "clear sky", WindSpeed: 2, Coord: weather.Coordinates{Lat: 1, Lon: 2}}, nil
}

func (stubFetcher) FetchForecast(context.Context, string, *weather.Coordinates) (weather.ForecastView, error) {
	return weather.ForecastView{}, weather.ErrNoForecastData
}

func (stubFetcher) FetchAttractions(context.Context, weather.Coordinates) ([]weather.Attraction, error) {
	return []weather.Attraction{{Name: "Old Town"}}, nil
}

type echoOracle struct{}

func (echoOracle) Reply(_ context.Context, text string) (string, float64, error) {
	return "you said " + text, 1, nil
}

func newTestApp(t *testing.T, turnsPerMinute int) *fiber.App {
	t.Helper()
	mem := store.NewMemoryStore(0)
	app := NewApp("weather-chat-assistant-test")
	RegisterRoutes(app, Deps{
		Chat:     chat.NewOrchestrator(stubFetcher{}, echoOracle{}, mem, nil, nil),
		Sessions: session.NewManager(10, time.Minute, turnsPerMinute),
		Usage:    ratelimit.NewDailyBudget(mem, 7, nil),
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func postJSON(t *testing.T, app *fiber.App, cookie *http.Cookie, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func postForm(t *testing.T, app *fiber.App, cookie *http.Cookie, message string) *http.Response {
	t.Helper()
	form := url.Values{"user_input": {message}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestStartPageIssuesSession(t *testing.T) {
	app := newTestApp(t, 60)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
	assert.NotEmpty(t, sessionCookie(t, resp).Value)
}

func TestChatAPI(t *testing.T) {
	app := newTestApp(t, 60)

	resp := postJSON(t, app, nil, `{"message":"weather in Riga?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	var reply chat.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "The weather in Riga is clear sky with a temperature of 21.4°C, humidity 40%, and wind speed ~7.2 km/h.", reply.Text)
	assert.Equal(t, chat.KindWeather, reply.Intent.Kind)

	// same session remembers the city
	resp = postJSON(t, app, cookie, `{"message":"things to do"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "Here are some things to do in Riga: Old Town", reply.Text)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history struct {
		SessionID string      `json:"sessionId"`
		Turns     []chat.Turn `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Equal(t, cookie.Value, history.SessionID)
	assert.Len(t, history.Turns, 2)
}

func TestChatAPIValidation(t *testing.T) {
	app := newTestApp(t, 600)

	for name, body := range map[string]string{
		"missing":  `{}`,
		"blank":    `{"message":"   "}`,
		"too long": `{"message":"` + strings.Repeat("x", chat.MaxMessageLength+1) + `"}`,
		"not json": `{"message":`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, app, nil, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var payload map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			assert.Equal(t, true, payload["error"])
		})
	}
}

func TestChatAPIThrottled(t *testing.T) {
	app := newTestApp(t, 4) // burst of 1

	resp := postJSON(t, app, nil, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	resp = postJSON(t, app, cookie, `{"message":"hello again"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSubmitPageRendersConversation(t *testing.T) {
	app := newTestApp(t, 60)

	form := url.Values{"user_input": {"weather in Atlantis"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "weather in Atlantis")
	assert.Contains(t, string(body), "couldn&#39;t find the weather")
}

func TestSubmitPageKeepsCityAcrossTurns(t *testing.T) {
	app := newTestApp(t, 600)

	resp := postForm(t, app, nil, "weather in paris")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	long := "tell me something nice about oceans and mountains " + strings.Repeat("please ", 40)
	resp = postForm(t, app, cookie, long)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postForm(t, app, cookie, "things to do")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Here are some things to do in Paris: Old Town")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)

	var history struct {
		Turns []chat.Turn `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.Turns, 3)
	assert.Equal(t, "weather in paris", history.Turns[0].UserText)
	assert.Equal(t, strings.TrimSpace(long), history.Turns[1].UserText)
	assert.Equal(t, "you said "+strings.TrimSpace(long), history.Turns[1].BotText)
	assert.Equal(t, "things to do", history.Turns[2].UserText)
}

func TestMessageLimitAppliesAfterTrimming(t *testing.T) {
	app := newTestApp(t, 600)
	padded := "   " + strings.Repeat("x", chat.MaxMessageLength) + "   "

	resp := postJSON(t, app, nil, `{"message":"`+padded+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply chat.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, strings.Repeat("x", chat.MaxMessageLength), reply.Turn.UserText)

	resp = postForm(t, app, nil, padded)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "Messages are limited to 500 characters.")
}

func TestStartPageClearsHistory(t *testing.T) {
	app := newTestApp(t, 60)

	resp := postJSON(t, app, nil, `{"message":"hello"}`)
	cookie := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, err := app.Test(req)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)

	var history struct {
		Turns []chat.Turn `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Empty(t, history.Turns)
}

func TestUsageAndHealth(t *testing.T) {
	app := newTestApp(t, 60)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Usage ratelimit.Usage `json:"usage"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 7, payload.Usage.Budget)
	assert.Equal(t, 0, payload.Usage.Count)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Cookies(), "health checks do not start sessions")
}
