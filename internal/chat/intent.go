package chat

import (
	"fmt"
	"strings"

	"github.com/i474232898/weather-chat-assistant/internal/common"
)

// Kind is the classified purpose of a turn.
type Kind int

const (
	KindChat Kind = iota
	KindForecast
	KindAttractions
	KindWeather
)

func (k Kind) String() string {
	switch k {
	case KindForecast:
		return "forecast"
	case KindAttractions:
		return "attractions"
	case KindWeather:
		return "weather"
	default:
		return "chat"
	}
}

// MarshalText lets Kind render by name in JSON replies.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forecast":
		*k = KindForecast
	case "attractions":
		*k = KindAttractions
	case "weather":
		*k = KindWeather
	case "chat":
		*k = KindChat
	default:
		return fmt.Errorf("unknown intent kind %q", b)
	}
	return nil
}

// Intent is the result of classifying one message. City is normalized and may
// be empty for Forecast and Attractions, which means the user must be asked for one.
type Intent struct {
	Kind Kind   `json:"kind"`
	City string `json:"city,omitempty"`
}

// fallback decides the city when no delimiter matched.
type fallback int

const (
	fallbackCurrentCity fallback = iota
	fallbackWholeInput
)

type rule struct {
	kind       Kind
	keywords   []string
	delimiters []string
	fallback   fallback
}

// weatherKeywords doubles as the low-confidence override trigger for small talk.
var weatherKeywords = []string{"weather", "forecast", "temperature", "humidity", "rain", "wind"}

// rules are evaluated in order; the first whose keywords match wins.
var rules = []rule{
	{
		kind:       KindForecast,
		keywords:   []string{"5 day forecast", "five day forecast", "5-day forecast", "multi-day forecast"},
		delimiters: []string{" in ", " for "},
		fallback:   fallbackCurrentCity,
	},
	{
		kind:       KindAttractions,
		keywords:   []string{"attractions", "things to do", "something i can do", "things i can do"},
		delimiters: []string{" in "},
		fallback:   fallbackCurrentCity,
	},
	{
		kind:       KindWeather,
		keywords:   weatherKeywords,
		delimiters: []string{" in "},
		fallback:   fallbackWholeInput,
	},
}

// Classify maps free text to an Intent. currentCity is the session's last
// resolved city, or "" when there is none.
func Classify(text, currentCity string) Intent {
	lower := strings.ToLower(text)

	for _, r := range rules {
		if !common.HasAny(lower, r.keywords...) {
			continue
		}
		return Intent{Kind: r.kind, City: r.extract(lower, currentCity)}
	}
	return Intent{Kind: KindChat}
}

func (r rule) extract(lower, currentCity string) string {
	for _, d := range r.delimiters {
		if rest, ok := common.After(lower, d); ok {
			return common.NormalizeCity(rest)
		}
	}
	if r.fallback == fallbackWholeInput {
		return common.NormalizeCity(lower)
	}
	return common.NormalizeCity(currentCity)
}

// mentionsWeather reports whether text contains any weather-adjacent keyword.
func mentionsWeather(text string) bool {
	return common.HasAny(strings.ToLower(text), weatherKeywords...)
}
