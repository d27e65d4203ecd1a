// Package format renders aggregator results and storage records as outbound
// message text. It is transport-agnostic: plain text with light emoji, no
// markup.
package format

import (
	"fmt"
	"strings"

	"travelbot/internal/domain"
)

const fallbackNote = "\n\n(best-effort estimate; live data sources were unavailable)"

// Weather renders a single current-conditions record.
func Weather(city string, records []domain.Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("Could not fetch weather for %s.", city)
	}
	r := records[0]
	var b strings.Builder
	fmt.Fprintf(&b, "🌤 Weather in %s:\n\n", city)
	writeReading(&b, r)
	return b.String() + fallbackSuffix(records)
}

// Forecast renders one collapsed record per day.
func Forecast(city string, records []domain.Record, dateFormat string) string {
	if len(records) == 0 {
		return fmt.Sprintf("Could not fetch the forecast for %s.", city)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🌤 %d-day forecast for %s:\n", len(records), city)
	for _, r := range records {
		fmt.Fprintf(&b, "\n📅 %s:\n", r.Date.Format(dateFormat))
		writeReading(&b, r)
	}
	return b.String() + fallbackSuffix(records)
}

// POI renders a numbered list of points of interest.
func POI(city string, records []domain.Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("No attractions found for %s.", city)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏛 Attractions in %s:\n\n", city)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s\n   Category: %s\n   Rating: %s/5\n\n", i+1, r.Name, r.Category, r.Rating)
	}
	return strings.TrimRight(b.String(), "\n") + fallbackSuffix(records)
}

func writeReading(b *strings.Builder, r domain.Record) {
	fmt.Fprintf(b, "🌡 Temperature: %.1f°C\n", r.Temperature)
	fmt.Fprintf(b, "📝 Conditions: %s\n", r.Description)
	fmt.Fprintf(b, "💧 Humidity: %d%%\n", r.Humidity)
	fmt.Fprintf(b, "💨 Wind: %.1f m/s\n", r.WindSpeed)
}

func fallbackSuffix(records []domain.Record) string {
	if len(records) > 0 && records[0].Source == domain.FallbackSource {
		return fallbackNote
	}
	return ""
}

// TripCreated confirms a completed trip-creation flow.
func TripCreated(t domain.Trip, dateFormat string) string {
	notes := t.Notes
	if notes == "" {
		notes = "none"
	}
	return fmt.Sprintf(
		"✅ Trip created!\n\n📍 Destination: %s\n📅 From: %s\n📅 To: %s\n📝 Notes: %s",
		t.Destination,
		t.StartDate.Format(dateFormat),
		t.EndDate.Format(dateFormat),
		notes,
	)
}

// TripList renders the user's trips, newest start date first.
func TripList(trips []domain.Trip, dateFormat string) string {
	var b strings.Builder
	b.WriteString("🗺 Your trips:\n")
	for _, t := range trips {
		fmt.Fprintf(&b, "\n📍 %s\n📅 %s - %s\n",
			t.Destination,
			t.StartDate.Format(dateFormat),
			t.EndDate.Format(dateFormat),
		)
		if t.Notes != "" {
			fmt.Fprintf(&b, "📝 %s\n", t.Notes)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// TaskCreated confirms a completed task-creation flow.
func TaskCreated(t domain.Task) string {
	return fmt.Sprintf("✅ Task added: %s", t.Description)
}

// TaskList renders the tasks of a single trip.
func TaskList(destination string, tasks []domain.Task) string {
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks yet for %s.", destination)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Tasks for %s:\n", destination)
	for _, task := range tasks {
		status := "⏳"
		if task.Completed {
			status = "✅"
		}
		fmt.Fprintf(&b, "%s %s\n", status, task.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TripLabel is the reply-keyboard label for a trip; the id prefix is parsed
// back during task creation.
func TripLabel(t domain.Trip) string {
	return t.ID + ": " + t.Destination
}
