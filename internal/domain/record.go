package domain

import "time"

// QueryKind identifies one of the aggregator's query types. The kind selects
// the provider chain, the cache TTL bucket and the response shape.
type QueryKind int

const (
	KindWeather QueryKind = iota
	KindForecast
	KindPOI
)

func (k QueryKind) String() string {
	switch k {
	case KindWeather:
		return "weather"
	case KindForecast:
		return "forecast"
	case KindPOI:
		return "poi"
	default:
		return "unknown"
	}
}

// FallbackSource marks records synthesized by the aggregator when every live
// provider was exhausted. Formatters use it to annotate best-effort data.
const FallbackSource = "fallback"

// Record is the provider-agnostic result shape shared by weather and POI
// queries. Providers normalize into it so callers never observe
// provider-specific fields; only the fields relevant to the query kind are
// populated.
type Record struct {
	// POI fields.
	Name     string
	Category string
	Rating   string

	// Weather fields. Date carries the city-local reading time for forecast
	// entries and is zero for current conditions.
	Temperature float64
	Description string
	Humidity    int
	WindSpeed   float64
	Date        time.Time

	// Source names the provider that produced the record, or FallbackSource
	// for synthesized placeholder data.
	Source string
}
