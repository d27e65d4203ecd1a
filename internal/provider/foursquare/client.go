// Package foursquare implements the primary points-of-interest source backed
// by the Foursquare Places search API.
package foursquare

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
	sourceName = "foursquare"

	// attractionsCategory is the Foursquare category id for landmarks and
	// outdoor attractions.
	attractionsCategory = "16000"

	defaultName     = "Unknown place"
	defaultCategory = "Attraction"
	defaultRating   = "4.0"
)

// searchResponse is the minimal shape of the place search endpoint.
type searchResponse struct {
	Results []struct {
		Name       string `json:"name"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
		Rating float64 `json:"rating"`
	} `json:"results"`
}

// Client performs structured POI searches.
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
		return nil, fmt.Errorf("foursquare: %w", err)
	}
	c := &Client{
		baseURL:    "https://api.foursquare.com/v3",
		httpClient: provider.DefaultHTTPClient(),
		key:        key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return sourceName }

// Fetch searches tourist attractions near the given city, truncated to limit.
func (c *Client) Fetch(ctx context.Context, kind domain.QueryKind, city string, limit int) ([]domain.Record, error) {
	if kind != domain.KindPOI {
		return nil, fmt.Errorf("foursquare: unsupported query kind %s", kind)
	}

	apiKey, err := c.key.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("query", "tourist attractions")
	q.Set("near", city)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("categories", attractionsCategory)

	reqURL := c.baseURL + "/places/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("foursquare: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", apiKey)

	raw, err := provider.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("foursquare: request failed: %w", err)
	}

	var payload searchResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("foursquare: decode response: %w", err)
	}

	records := make([]domain.Record, 0, len(payload.Results))
	for _, place := range payload.Results {
		if len(records) == limit {
			break
		}
		rec := domain.Record{
			Name:     defaultName,
			Category: defaultCategory,
			Rating:   defaultRating,
			Source:   sourceName,
		}
		if place.Name != "" {
			rec.Name = place.Name
		}
		if len(place.Categories) > 0 && place.Categories[0].Name != "" {
			rec.Category = place.Categories[0].Name
		}
		if place.Rating > 0 {
			rec.Rating = strconv.FormatFloat(place.Rating, 'f', 1, 64)
		}
		records = append(records, rec)
	}
	return records, nil
}
