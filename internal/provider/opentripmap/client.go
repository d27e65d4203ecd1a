// Package opentripmap implements the secondary points-of-interest source: a
// geocode lookup followed by a radius search around the resolved coordinates.
package opentripmap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"travelbot/internal/domain"
	"travelbot/internal/provider"
)

const (
	sourceName = "opentripmap"

	searchRadiusMeters = 10000

	defaultName     = "Unknown place"
	defaultCategory = "Attraction"
	// OpenTripMap does not expose ratings; every record gets the default.
	defaultRating = "4.0"
)

// geonameResponse is the minimal shape of the geocode endpoint.
type geonameResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// radiusResponse is the minimal shape of the radius search endpoint.
type radiusResponse struct {
	Features []struct {
		Properties struct {
			Name  string `json:"name"`
			Kinds string `json:"kinds"`
		} `json:"properties"`
	} `json:"features"`
}

// Client geocodes a city and lists interesting places around it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	key        *provider.KeySource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(ps provider.Getter, paramName string, opts ...Option) (*Client, error) {
	key, err := provider.NewKeySource(ps, paramName)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: %w", err)
	}
	c := &Client{
		baseURL:    "https://api.opentripmap.com/0.1/en",
		httpClient: provider.DefaultHTTPClient(),
		key:        key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return sourceName }

// Fetch geocodes the city, then lists interesting places within the search
// radius, truncated to limit.
func (c *Client) Fetch(ctx context.Context, kind domain.QueryKind, city string, limit int) ([]domain.Record, error) {
	if kind != domain.KindPOI {
		return nil, fmt.Errorf("opentripmap: unsupported query kind %s", kind)
	}

	apiKey, err := c.key.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	lat, lon, err := c.geocode(ctx, apiKey, city)
	if err != nil {
		return nil, err
	}
	return c.radiusSearch(ctx, apiKey, lat, lon, limit)
}

func (c *Client) geocode(ctx context.Context, apiKey, city string) (lat, lon float64, err error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("apikey", apiKey)

	raw, err := c.get(ctx, "/places/geoname?"+q.Encode())
	if err != nil {
		return 0, 0, err
	}

	var payload geonameResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, 0, fmt.Errorf("opentripmap: decode geoname response: %w", err)
	}
	if payload.Lat == 0 && payload.Lon == 0 {
		return 0, 0, fmt.Errorf("opentripmap: city %q not found", city)
	}
	return payload.Lat, payload.Lon, nil
}

func (c *Client) radiusSearch(ctx context.Context, apiKey string, lat, lon float64, limit int) ([]domain.Record, error) {
	q := url.Values{}
	q.Set("radius", strconv.Itoa(searchRadiusMeters))
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("kinds", "interesting_places")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("apikey", apiKey)

	raw, err := c.get(ctx, "/places/radius?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var payload radiusResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("opentripmap: decode radius response: %w", err)
	}

	records := make([]domain.Record, 0, len(payload.Features))
	for _, feature := range payload.Features {
		if len(records) == limit {
			break
		}
		rec := domain.Record{
			Name:     defaultName,
			Category: defaultCategory,
			Rating:   defaultRating,
			Source:   sourceName,
		}
		if feature.Properties.Name != "" {
			rec.Name = feature.Properties.Name
		}
		if kinds := feature.Properties.Kinds; kinds != "" {
			rec.Category = strings.SplitN(kinds, ",", 2)[0]
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: create request: %w", err)
	}
	raw, err := provider.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: request failed: %w", err)
	}
	return raw, nil
}
