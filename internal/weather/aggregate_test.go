package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func slot(day, hour int, desc string) ForecastEntry {
	return ForecastEntry{
		Timestamp:   time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC),
		Description: desc,
		TempMax:     float64(10 + day),
		Humidity:    50 + hour,
	}
}

func TestDailySummariesFirstEntryPerDay(t *testing.T) {
	entries := []ForecastEntry{
		slot(1, 12, "rain"), slot(1, 15, "clouds"),
		slot(2, 0, "clear"), slot(2, 3, "mist"),
		slot(3, 0, "snow"),
	}

	got := DailySummaries(entries, MaxForecastDays)
	assert.Equal(t, []DailySummary{
		{Date: "2024-05-01", Description: "rain", TempMax: 11, Humidity: 62},
		{Date: "2024-05-02", Description: "clear", TempMax: 12, Humidity: 50},
		{Date: "2024-05-03", Description: "snow", TempMax: 13, Humidity: 50},
	}, got)
}

func TestDailySummariesCapsDays(t *testing.T) {
	var entries []ForecastEntry
	for d := 1; d <= 6; d++ {
		for h := 0; h < 24; h += 3 {
			entries = append(entries, slot(d, h, "x"))
		}
	}

	got := DailySummaries(entries, MaxForecastDays)
	assert.Len(t, got, 5)
	assert.Equal(t, "2024-05-05", got[4].Date)

	assert.Len(t, DailySummaries(entries, 0), MaxForecastDays)
	assert.Empty(t, DailySummaries(nil, MaxForecastDays))
}

func TestDailySummaryLine(t *testing.T) {
	d := DailySummary{Date: "2024-05-01", Description: "light rain", TempMax: 17, Humidity: 60}
	assert.Equal(t, "2024-05-01: light rain, max 17.0°C, humidity 60%", d.Line())
}

func TestKelvinToCelsius(t *testing.T) {
	assert.Equal(t, 18.3, KelvinToCelsius(291.45))
	assert.Equal(t, 0.0, KelvinToCelsius(273.15))
	assert.Equal(t, 15.1, WeatherView{WindSpeed: 4.2}.WindSpeedKmh())
}
