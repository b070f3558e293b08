package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

// LowConfidence is the reply generator score under which weather-flavoured
// small talk is answered with a canned message.
const LowConfidence = 0.5

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLength)
)

// Fetcher is the subset of weather.Service used by the orchestrator.
type Fetcher interface {
	FetchWeather(ctx context.Context, city string, coords *weather.Coordinates) (weather.WeatherView, error)
	FetchForecast(ctx context.Context, city string, coords *weather.Coordinates) (weather.ForecastView, error)
	FetchAttractions(ctx context.Context, at weather.Coordinates) ([]weather.Attraction, error)
}

// ReplyGenerator answers free text with a reply and a confidence in [0, 1].
type ReplyGenerator interface {
	Reply(ctx context.Context, text string) (string, float64, error)
}

// MapLinker builds a map image URL for a position.
type MapLinker interface {
	MapURL(at weather.Coordinates) string
}

// ForecastSummary is the daily forecast shown next to the conversation.
type ForecastSummary struct {
	City string                 `json:"city"`
	Days []weather.DailySummary `json:"days"`
}

// Reply is the outcome of one turn: the bot text plus whatever display data
// the fetchers produced along the way.
type Reply struct {
	Text        string               `json:"reply"`
	Intent      Intent               `json:"intent"`
	Weather     *weather.WeatherView `json:"weather,omitempty"`
	Forecast    *ForecastSummary     `json:"forecast,omitempty"`
	Attractions []weather.Attraction `json:"attractions,omitempty"`
	MapURL      string               `json:"mapUrl,omitempty"`
	Turn        Turn                 `json:"turn"`
}

// Orchestrator drives a conversation turn: classify, fetch, format, record.
type Orchestrator struct {
	fetcher Fetcher
	oracle  ReplyGenerator
	history History
	maps    MapLinker
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewOrchestrator creates a new Orchestrator. maps may be nil, in which case
// no map URLs are produced.
func NewOrchestrator(fetcher Fetcher, oracle ReplyGenerator, history History, maps MapLinker, log *zap.SugaredLogger) *Orchestrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		fetcher: fetcher,
		oracle:  oracle,
		history: history,
		maps:    maps,
		log:     log,
		now:     time.Now,
	}
}

// Handle processes one user message for sess. Provider failures become reply
// text; only invalid input and history write failures are returned as errors.
func (o *Orchestrator) Handle(ctx context.Context, sess *Session, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return Reply{}, ErrMessageTooLong
	}

	sess.Lock()
	defer sess.Unlock()

	intent := Classify(text, sess.CurrentCity)
	reply := Reply{Intent: intent}

	switch intent.Kind {
	case KindForecast:
		o.forecast(ctx, sess, intent.City, &reply)
	case KindAttractions:
		o.attractions(ctx, sess, intent.City, &reply)
	case KindWeather:
		o.weather(ctx, sess, intent.City, &reply)
	default:
		reply.Text = o.smallTalk(ctx, text)
	}

	now := o.now().UTC()
	sess.UpdatedAt = now
	reply.Turn = Turn{
		ID:        ulid.Make().String(),
		SessionID: sess.ID,
		UserText:  text,
		BotText:   reply.Text,
		Timestamp: now,
	}
	if err := o.history.AppendTurn(ctx, reply.Turn); err != nil {
		return reply, fmt.Errorf("record turn: %w", err)
	}

	o.log.Debugw("turn handled", "session", sess.ID, "intent", intent.Kind.String(), "city", intent.City)
	return reply, nil
}

// Reset starts the session over: no current city and an empty history.
func (o *Orchestrator) Reset(ctx context.Context, sess *Session) error {
	sess.Lock()
	defer sess.Unlock()

	sess.reset()
	sess.UpdatedAt = o.now().UTC()
	if err := o.history.ClearTurns(ctx, sess.ID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// History returns the session's turns, oldest first.
func (o *Orchestrator) History(ctx context.Context, sess *Session) ([]Turn, error) {
	return o.history.Turns(ctx, sess.ID)
}

func (o *Orchestrator) forecast(ctx context.Context, sess *Session, city string, reply *Reply) {
	if city == "" {
		reply.Text = msgForecastNoCity
		return
	}

	fv, err := o.fetcher.FetchForecast(ctx, city, nil)
	if err != nil {
		reply.Text = o.failure(err, msgForecastFailed, "forecast", city)
		return
	}

	days := weather.DailySummaries(fv.Entries, weather.MaxForecastDays)
	reply.Text = forecastText(city, days)
	reply.Forecast = &ForecastSummary{City: city, Days: days}

	coord := fv.Coord
	w, err := o.fetcher.FetchWeather(ctx, city, &coord)
	if err != nil {
		o.log.Infow("weather for forecast map unavailable", "city", city, "error", err)
		sess.remember(city, coord, nil, "")
		return
	}
	reply.MapURL = o.mapURL(w.Coord)
	sess.remember(city, w.Coord, &w, reply.MapURL)
}

func (o *Orchestrator) attractions(ctx context.Context, sess *Session, city string, reply *Reply) {
	if city == "" {
		reply.Text = msgAttractionsNoCity
		return
	}

	var w *weather.WeatherView
	if city == sess.CurrentCity && sess.Coord != nil {
		w = sess.LastWeather
	} else {
		fetched, err := o.fetcher.FetchWeather(ctx, city, nil)
		if err != nil {
			reply.Text = o.failure(err, msgAttractionsFailed, "attractions", city)
			return
		}
		w = &fetched
		sess.remember(city, fetched.Coord, w, o.mapURL(fetched.Coord))
	}

	places, err := o.fetcher.FetchAttractions(ctx, *sess.Coord)
	if err != nil {
		if errors.Is(err, weather.ErrRateLimitExceeded) {
			reply.Text = msgRateLimited
			return
		}
		o.log.Warnw("attractions lookup failed", "city", city, "error", err)
	}

	reply.Text = attractionsText(city, places)
	reply.Weather = w
	reply.Attractions = places
	reply.MapURL = sess.MapURL
}

func (o *Orchestrator) weather(ctx context.Context, sess *Session, city string, reply *Reply) {
	w, err := o.fetcher.FetchWeather(ctx, city, nil)
	if err != nil {
		reply.Text = o.failure(err, msgWeatherFailed, "weather", city)
		return
	}

	reply.Text = weatherText(city, w)
	reply.Weather = &w
	reply.MapURL = o.mapURL(w.Coord)
	sess.remember(city, w.Coord, &w, reply.MapURL)

	places, err := o.fetcher.FetchAttractions(ctx, w.Coord)
	if err != nil {
		o.log.Infow("side attractions unavailable", "city", city, "error", err)
		return
	}
	reply.Attractions = places
}

func (o *Orchestrator) smallTalk(ctx context.Context, text string) string {
	answer, confidence, err := o.oracle.Reply(ctx, text)
	if err != nil {
		o.log.Warnw("reply generator failed", "error", err)
		return msgWeatherFallback
	}
	if confidence < LowConfidence && mentionsWeather(text) {
		return msgWeatherFallback
	}
	return answer
}

// failure turns a fetch error into reply text.
func (o *Orchestrator) failure(err error, generic, op, city string) string {
	if errors.Is(err, weather.ErrRateLimitExceeded) {
		return msgRateLimited
	}
	if errors.Is(err, weather.ErrCityNotFound) {
		o.log.Infow("city not found", "op", op, "city", city)
	} else {
		o.log.Warnw("fetch failed", "op", op, "city", city, "error", err)
	}
	return generic
}

func (o *Orchestrator) mapURL(at weather.Coordinates) string {
	if o.maps == nil {
		return ""
	}
	return o.maps.MapURL(at)
}
