// Package openweather implements the weather data source backed by the
// OpenWeatherMap API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"travelbot/internal/domain"
	"travelbot/internal/provider"
)

const sourceName = "openweather"

// currentResponse is the minimal shape of the current-conditions endpoint.
type currentResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// forecastResponse is the minimal shape of the 5-day/3-hour forecast endpoint.
type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
	City struct {
		// Timezone is the UTC offset of the city in seconds.
		Timezone int `json:"timezone"`
	} `json:"city"`
}

// Client fetches weather observations and forecast series.
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

// New creates a Client that resolves its API key from the given parameter on
// first use.
func New(ps provider.Getter, paramName string, opts ...Option) (*Client, error) {
	key, err := provider.NewKeySource(ps, paramName)
	if err != nil {
		return nil, fmt.Errorf("openweather: %w", err)
	}
	c := &Client{
		baseURL:    "https://api.openweathermap.org/data/2.5",
		httpClient: provider.DefaultHTTPClient(),
		key:        key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return sourceName }

// Fetch returns a single current-conditions record for KindWeather, or the
// raw 3-hourly reading series with city-local timestamps for KindForecast.
// Day collapsing is the aggregator's job.
func (c *Client) Fetch(ctx context.Context, kind domain.QueryKind, city string, limit int) ([]domain.Record, error) {
	switch kind {
	case domain.KindWeather:
		return c.current(ctx, city)
	case domain.KindForecast:
		return c.forecast(ctx, city)
	default:
		return nil, fmt.Errorf("openweather: unsupported query kind %s", kind)
	}
}

func (c *Client) current(ctx context.Context, city string) ([]domain.Record, error) {
	raw, err := c.get(ctx, "/weather", city)
	if err != nil {
		return nil, err
	}

	var payload currentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("openweather: decode current response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return nil, errors.New("openweather: no weather conditions in response")
	}

	return []domain.Record{{
		Temperature: payload.Main.Temp,
		Description: payload.Weather[0].Description,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Source:      sourceName,
	}}, nil
}

func (c *Client) forecast(ctx context.Context, city string) ([]domain.Record, error) {
	raw, err := c.get(ctx, "/forecast", city)
	if err != nil {
		return nil, err
	}

	var payload forecastResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("openweather: decode forecast response: %w", err)
	}

	loc := time.FixedZone("city", payload.City.Timezone)
	records := make([]domain.Record, 0, len(payload.List))
	for _, entry := range payload.List {
		desc := ""
		if len(entry.Weather) > 0 {
			desc = entry.Weather[0].Description
		}
		records = append(records, domain.Record{
			Temperature: entry.Main.Temp,
			Description: desc,
			Humidity:    entry.Main.Humidity,
			WindSpeed:   entry.Wind.Speed,
			Date:        time.Unix(entry.Dt, 0).In(loc),
			Source:      sourceName,
		})
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path, city string) ([]byte, error) {
	apiKey, err := c.key.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", apiKey)
	q.Set("units", "metric")

	reqURL := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("openweather: create request: %w", err)
	}

	raw, err := provider.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("openweather: request failed: %w", err)
	}
	return raw, nil
}
