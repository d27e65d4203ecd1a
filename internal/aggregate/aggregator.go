// Package aggregate answers weather, forecast and points-of-interest queries
// by consulting a TTL cache and then racing down an ordered provider chain.
// It never fails to the caller: when every live source is exhausted it
// synthesizes deterministic placeholder data instead.
package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"travelbot/internal/domain"
)

// Provider is one external data source. Implementations return normalized
// records truncated to limit, an empty slice for a well-formed empty answer,
// or an error for any unusable outcome (missing credential, transport
// failure, malformed payload). The aggregator treats all three identically:
// this provider produced no usable data, try the next one.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, kind domain.QueryKind, city string, limit int) ([]domain.Record, error)
}

// Aggregator orchestrates cache lookup, ordered provider fallback and cache
// population for all query kinds.
type Aggregator struct {
	cache   *Cache
	weather []Provider
	poi     []Provider
	logger  *slog.Logger
}

// New creates an Aggregator. Provider slices are tried in the given order;
// either may be empty, in which case the placeholder path serves that kind.
func New(cache *Cache, weather, poi []Provider, logger *slog.Logger) (*Aggregator, error) {
	if cache == nil {
		return nil, errors.New("aggregate: cache must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		cache:   cache,
		weather: weather,
		poi:     poi,
		logger:  logger,
	}, nil
}

// Resolve answers a query. It always returns at least the placeholder set;
// no error path reaches the caller. Successful live results are cached,
// placeholder results are not, so a later call can still be promoted to live
// data once a provider recovers.
func (a *Aggregator) Resolve(ctx context.Context, kind domain.QueryKind, city string, limit int) []domain.Record {
	if limit < 1 {
		limit = 1
	}
	query := normalizeQuery(city)
	key := queryKey(kind, query, limit)

	if records, ok := a.cache.Get(kind, key); ok {
		return records
	}

	records := a.fetch(ctx, kind, query, limit)
	if len(records) > 0 {
		a.cache.Put(kind, key, records)
		return records
	}

	a.logger.Warn("all providers exhausted, serving placeholder data",
		"kind", kind.String(), "query", query)
	return a.placeholder(kind, query, limit)
}

func (a *Aggregator) fetch(ctx context.Context, kind domain.QueryKind, query string, limit int) []domain.Record {
	for _, p := range a.providers(kind) {
		records, err := p.Fetch(ctx, kind, query, limit)
		if err != nil {
			a.logger.Debug("provider failed, falling back",
				"provider", p.Name(), "kind", kind.String(), "err", err)
			continue
		}
		if kind == domain.KindForecast {
			records = collapseDaily(records, limit)
		}
		if len(records) == 0 {
			a.logger.Debug("provider returned no results, falling back",
				"provider", p.Name(), "kind", kind.String())
			continue
		}
		return records
	}
	return nil
}

func (a *Aggregator) providers(kind domain.QueryKind) []Provider {
	if kind == domain.KindPOI {
		return a.poi
	}
	return a.weather
}

func (a *Aggregator) placeholder(kind domain.QueryKind, query string, limit int) []domain.Record {
	switch kind {
	case domain.KindPOI:
		return placeholderPOI(query, limit)
	case domain.KindForecast:
		return placeholderForecast(query, limit)
	default:
		return placeholderWeather(query)
	}
}

// normalizeQuery trims and case-folds the location so cache keys and
// provider queries agree on a canonical form.
func normalizeQuery(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// queryKey includes the day count for forecasts; a 3-day and a 5-day
// forecast for the same city are distinct cache entries.
func queryKey(kind domain.QueryKind, query string, limit int) string {
	if kind == domain.KindForecast {
		return query + ":" + strconv.Itoa(limit)
	}
	return query
}

// collapseDaily reduces a chronological multi-point series to one record per
// calendar day, preferring the reading closest to local midday, and stops
// once days distinct dates are collected.
func collapseDaily(series []domain.Record, days int) []domain.Record {
	if days < 1 {
		return nil
	}

	var (
		out   []domain.Record
		dists []time.Duration
		index = make(map[string]int, days)
	)
	for _, r := range series {
		day := r.Date.Format("2006-01-02")
		dist := middayDistance(r.Date)
		if i, ok := index[day]; ok {
			if dist < dists[i] {
				out[i] = r
				dists[i] = dist
			}
			continue
		}
		if len(out) == days {
			// The series is chronological, so a new date past the requested
			// window means every collected day is final.
			break
		}
		index[day] = len(out)
		out = append(out, r)
		dists = append(dists, dist)
	}
	return out
}

func middayDistance(t time.Time) time.Duration {
	midday := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
	d := t.Sub(midday)
	if d < 0 {
		d = -d
	}
	return d
}
