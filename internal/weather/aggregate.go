package weather

import "fmt"

// MaxForecastDays caps the daily view; the provider returns partial sixth days.
const MaxForecastDays = 5

// DailySummary is the one-per-calendar-day view of a forecast.
type DailySummary struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	TempMax     float64 `json:"tempMaxC"`
	Humidity    int     `json:"humidityPercent"`
}

// Line renders the summary as a single chat line.
func (d DailySummary) Line() string {
	return fmt.Sprintf("%s: %s, max %.1f°C, humidity %d%%", d.Date, d.Description, d.TempMax, d.Humidity)
}

// DailySummaries reduces 3-hour entries to the first entry of each calendar day,
// in input order, keeping at most maxDays days.
func DailySummaries(entries []ForecastEntry, maxDays int) []DailySummary {
	if maxDays <= 0 {
		maxDays = MaxForecastDays
	}

	seen := make(map[string]struct{}, maxDays)
	out := make([]DailySummary, 0, maxDays)

	for _, e := range entries {
		if len(out) >= maxDays {
			break
		}
		day := e.Timestamp.UTC().Format(DateLayout)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, DailySummary{
			Date:        day,
			Description: e.Description,
			TempMax:     e.TempMax,
			Humidity:    e.Humidity,
		})
	}

	return out
}
