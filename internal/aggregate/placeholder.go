package aggregate

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"travelbot/internal/domain"
)

// Placeholder data keeps the bot responsive when every live source fails.
// Results are deterministic per city and deliberately templated so formatters
// can flag them as best-effort.

type poiTemplate struct {
	name     string
	category string
	rating   string
}

var poiTemplates = []poiTemplate{
	{"%s Main Square", "Square", "4.5"},
	{"%s History Museum", "Museum", "4.7"},
	{"%s City Park", "Park", "4.3"},
	{"%s Cathedral", "Religious site", "4.8"},
	{"%s Observation Deck", "Viewpoint", "4.6"},
	{"%s Central Street", "Street", "4.4"},
	{"%s Town Hall", "Architecture", "4.2"},
	{"%s Founders Monument", "Monument", "4.1"},
}

func placeholderPOI(query string, limit int) []domain.Record {
	city := displayCity(query)
	if limit > len(poiTemplates) {
		limit = len(poiTemplates)
	}
	records := make([]domain.Record, 0, limit)
	for _, tpl := range poiTemplates[:limit] {
		records = append(records, domain.Record{
			Name:     fmt.Sprintf(tpl.name, city),
			Category: tpl.category,
			Rating:   tpl.rating,
			Source:   domain.FallbackSource,
		})
	}
	return records
}

func placeholderWeather(query string) []domain.Record {
	return []domain.Record{placeholderReading(query, time.Time{})}
}

func placeholderForecast(query string, days int) []domain.Record {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	records := make([]domain.Record, 0, days)
	for i := 0; i < days; i++ {
		records = append(records, placeholderReading(query, today.AddDate(0, 0, i).Add(12*time.Hour)))
	}
	return records
}

func placeholderReading(query string, date time.Time) domain.Record {
	return domain.Record{
		Temperature: 18,
		Description: fmt.Sprintf("typical conditions for %s", displayCity(query)),
		Humidity:    60,
		WindSpeed:   3.5,
		Date:        date,
		Source:      domain.FallbackSource,
	}
}

// displayCity restores a presentable casing for the case-folded query key.
func displayCity(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
