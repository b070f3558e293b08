package chat

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

// MaxMessageLength bounds the user side of a turn, in characters.
const MaxMessageLength = 500

// Turn is one user submission and the bot's answer.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserText  string    `json:"user"`
	BotText   string    `json:"bot"`
	Timestamp time.Time `json:"timestamp"` // always UTC
}

// History is the append-only turn log of each session.
type History interface {
	AppendTurn(ctx context.Context, t Turn) error
	Turns(ctx context.Context, sessionID string) ([]Turn, error)
	ClearTurns(ctx context.Context, sessionID string) error
}

// Session is the conversational state of one connection. Turns for the same
// session are serialized through Lock/Unlock.
type Session struct {
	mu sync.Mutex

	ID          string
	CurrentCity string
	Coord       *weather.Coordinates
	LastWeather *weather.WeatherView
	MapURL      string
	UpdatedAt   time.Time
}

// NewSession returns an empty session.
func NewSession(id string) *Session {
	return &Session{ID: id, UpdatedAt: time.Now().UTC()}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// remember records the city a turn resolved to. w may be nil when only the
// position is known.
func (s *Session) remember(city string, coord weather.Coordinates, w *weather.WeatherView, mapURL string) {
	s.CurrentCity = city
	s.Coord = &coord
	s.LastWeather = w
	s.MapURL = mapURL
}

func (s *Session) reset() {
	s.CurrentCity = ""
	s.Coord = nil
	s.LastWeather = nil
	s.MapURL = ""
}
