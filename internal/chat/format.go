package chat

import (
	"fmt"
	"strings"

	"github.com/i474232898/weather-chat-assistant/internal/common"
	"github.com/i474232898/weather-chat-assistant/internal/weather"
)

const (
	msgRateLimited       = "Daily API limit reached. Please try again tomorrow."
	msgWeatherFailed     = "Sorry, I couldn't find the weather for that location."
	msgForecastFailed    = "Sorry, I couldn't retrieve a 5-day forecast for that location."
	msgAttractionsFailed = "Sorry, I couldn't retrieve data for that location."
	msgForecastNoCity    = "Please specify the city for a 5-day forecast."
	msgAttractionsNoCity = "Please specify the city for attraction suggestions."
	msgNoSuggestions     = "No suggestions found."
	msgWeatherFallback   = "I'm not sure, but I can help with weather information."
)

func weatherText(city string, w weather.WeatherView) string {
	return fmt.Sprintf("The weather in %s is %s with a temperature of %.1f°C, humidity %d%%, and wind speed ~%.1f km/h.",
		common.Title(city), w.Description, w.Temperature, w.Humidity, w.WindSpeedKmh())
}

func forecastText(city string, days []weather.DailySummary) string {
	lines := make([]string, len(days))
	for i, d := range days {
		lines[i] = d.Line()
	}
	return fmt.Sprintf("5-Day forecast for %s:\n%s", common.Title(city), strings.Join(lines, "\n"))
}

func attractionsText(city string, places []weather.Attraction) string {
	list := msgNoSuggestions
	if len(places) > 0 {
		names := make([]string, len(places))
		for i, p := range places {
			names[i] = p.Name
		}
		list = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Here are some things to do in %s: %s", common.Title(city), list)
}
