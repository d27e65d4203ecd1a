package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"travelbot/internal/domain"
)

// fakeProvider counts calls and serves a canned response.
type fakeProvider struct {
	name    string
	records []domain.Record
	err     error
	calls   int
	gotCity string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(_ context.Context, _ domain.QueryKind, city string, _ int) ([]domain.Record, error) {
	f.calls++
	f.gotCity = city
	return f.records, f.err
}

func newAggregator(t *testing.T, weather, poi []Provider) *Aggregator {
	t.Helper()
	agg, err := New(NewCache(0, 0), weather, poi, nil)
	require.NoError(t, err)
	return agg
}

func poiRecords(names ...string) []domain.Record {
	out := make([]domain.Record, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Record{Name: n, Category: "Museum", Rating: "4.5", Source: "test"})
	}
	return out
}

func TestNew_NilCache(t *testing.T) {
	_, err := New(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestResolve_CacheHitSkipsProviders(t *testing.T) {
	p := &fakeProvider{name: "live", records: poiRecords("Alpha")}
	agg := newAggregator(t, nil, []Provider{p})

	first := agg.Resolve(context.Background(), domain.KindPOI, "Lisbon", 5)
	second := agg.Resolve(context.Background(), domain.KindPOI, "Lisbon", 5)

	require.Equal(t, first, second)
	require.Equal(t, 1, p.calls)
}

func TestResolve_NormalizesCityForCacheAndProviders(t *testing.T) {
	p := &fakeProvider{name: "live", records: poiRecords("Alpha")}
	agg := newAggregator(t, nil, []Provider{p})

	agg.Resolve(context.Background(), domain.KindPOI, "  Lisbon ", 5)
	agg.Resolve(context.Background(), domain.KindPOI, "LISBON", 5)

	require.Equal(t, 1, p.calls)
	require.Equal(t, "lisbon", p.gotCity)
}

func TestResolve_FallbackStopsAtFirstSuccess(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("boom")}
	empty := &fakeProvider{name: "empty"}
	live := &fakeProvider{name: "live", records: poiRecords("Alpha", "Beta")}
	unused := &fakeProvider{name: "unused", records: poiRecords("Gamma")}
	agg := newAggregator(t, nil, []Provider{broken, empty, live, unused})

	records := agg.Resolve(context.Background(), domain.KindPOI, "Porto", 5)

	require.Equal(t, poiRecords("Alpha", "Beta"), records)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, empty.calls)
	require.Equal(t, 1, live.calls)
	require.Zero(t, unused.calls)
}

func TestResolve_PlaceholderWhenAllProvidersFail(t *testing.T) {
	p := &fakeProvider{name: "broken", err: errors.New("boom")}
	agg := newAggregator(t, nil, []Provider{p})

	first := agg.Resolve(context.Background(), domain.KindPOI, "Atlantis", 3)
	second := agg.Resolve(context.Background(), domain.KindPOI, "Atlantis", 3)
	third := agg.Resolve(context.Background(), domain.KindPOI, "Atlantis", 3)

	require.Len(t, first, 3)
	for _, r := range first {
		require.Equal(t, domain.FallbackSource, r.Source)
		require.Contains(t, r.Name, "Atlantis")
		require.NotEmpty(t, r.Category)
		require.NotEmpty(t, r.Rating)
	}
	require.Equal(t, first, second)
	require.Equal(t, first, third)
}

func TestResolve_PlaceholderIsNotCached(t *testing.T) {
	p := &fakeProvider{name: "flaky", err: errors.New("boom")}
	agg := newAggregator(t, nil, []Provider{p})

	out := agg.Resolve(context.Background(), domain.KindPOI, "Atlantis", 3)
	require.Equal(t, domain.FallbackSource, out[0].Source)

	// Provider recovers; the next call must reach it instead of a cached
	// placeholder.
	p.err = nil
	p.records = poiRecords("Sunken Palace")
	out = agg.Resolve(context.Background(), domain.KindPOI, "Atlantis", 3)
	require.Equal(t, "Sunken Palace", out[0].Name)
	require.Equal(t, 2, p.calls)
}

func TestResolve_PlaceholderWeatherShape(t *testing.T) {
	agg := newAggregator(t, nil, nil)

	records := agg.Resolve(context.Background(), domain.KindWeather, "atlantis", 1)

	require.Len(t, records, 1)
	require.Equal(t, domain.FallbackSource, records[0].Source)
	require.NotEmpty(t, records[0].Description)
	require.Contains(t, records[0].Description, "Atlantis")
}

func TestResolve_ForecastCollapsesToOneRecordPerDay(t *testing.T) {
	day := func(d, h int) time.Time {
		return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC)
	}
	series := []domain.Record{
		{Temperature: 10, Date: day(1, 6)},
		{Temperature: 14, Date: day(1, 12)}, // midday, wins day 1
		{Temperature: 12, Date: day(1, 18)},
		{Temperature: 15, Date: day(2, 9)},
		{Temperature: 17, Date: day(2, 15)}, // 3h from midday, ties resolve to first
		{Temperature: 20, Date: day(3, 13)}, // only reading, wins day 3
		{Temperature: 22, Date: day(4, 12)}, // past the requested window
	}
	p := &fakeProvider{name: "live", records: series}
	agg := newAggregator(t, []Provider{p}, nil)

	records := agg.Resolve(context.Background(), domain.KindForecast, "Lisbon", 3)

	require.Len(t, records, 3)
	require.Equal(t, float64(14), records[0].Temperature)
	require.Equal(t, float64(15), records[1].Temperature)
	require.Equal(t, float64(20), records[2].Temperature)
}

func TestResolve_ForecastCacheKeyIncludesDayCount(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 6, d, 12, 0, 0, 0, time.UTC)
	}
	p := &fakeProvider{name: "live", records: []domain.Record{
		{Temperature: 10, Date: day(1)},
		{Temperature: 11, Date: day(2)},
		{Temperature: 12, Date: day(3)},
	}}
	agg := newAggregator(t, []Provider{p}, nil)

	three := agg.Resolve(context.Background(), domain.KindForecast, "Lisbon", 3)
	two := agg.Resolve(context.Background(), domain.KindForecast, "Lisbon", 2)

	require.Len(t, three, 3)
	require.Len(t, two, 2)
	require.Equal(t, 2, p.calls)
}

func TestResolve_LimitFloorsAtOne(t *testing.T) {
	p := &fakeProvider{name: "broken", err: errors.New("boom")}
	agg := newAggregator(t, nil, []Provider{p})

	records := agg.Resolve(context.Background(), domain.KindPOI, "Atlantis", 0)
	require.Len(t, records, 1)
}

func TestCollapseDaily_EmptySeries(t *testing.T) {
	require.Empty(t, collapseDaily(nil, 5))
	require.Empty(t, collapseDaily([]domain.Record{{Temperature: 1}}, 0))
}
