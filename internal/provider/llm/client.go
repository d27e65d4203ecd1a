// Package llm implements the last-resort points-of-interest source: an
// OpenAI-compatible chat completion prompted for a strict JSON array of
// places. Model output is parsed leniently because models occasionally wrap
// the array in prose or code fences.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"travelbot/internal/domain"
	"travelbot/internal/provider"
)

const (
	sourceName   = "llm"
	defaultModel = "gpt-4o-mini"

	defaultCategory = "Attraction"
	defaultRating   = "4.0"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// poiItem is the array element shape the prompt asks the model to emit.
type poiItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Rating   string `json:"rating"`
}

// Client asks a chat model for points of interest.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	key        *provider.KeySource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
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
		return nil, fmt.Errorf("llm: %w", err)
	}
	c := &Client{
		baseURL:    "https://api.openai.com/v1",
		model:      defaultModel,
		httpClient: provider.DefaultHTTPClient(),
		key:        key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return sourceName }

// Fetch prompts the model for the city's top attractions and parses the
// returned JSON array, tolerating surrounding prose.
func (c *Client) Fetch(ctx context.Context, kind domain.QueryKind, city string, limit int) ([]domain.Record, error) {
	if kind != domain.KindPOI {
		return nil, fmt.Errorf("llm: unsupported query kind %s", kind)
	}

	apiKey, err := c.key.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: userPrompt(city, limit)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := provider.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return nil, errors.New("llm: no choices in response")
	}

	items, err := parsePOIArray(payload.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		if len(records) == limit {
			break
		}
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		rec := domain.Record{
			Name:     strings.TrimSpace(item.Name),
			Category: defaultCategory,
			Rating:   defaultRating,
			Source:   sourceName,
		}
		if v := strings.TrimSpace(item.Category); v != "" {
			rec.Category = v
		}
		if v := strings.TrimSpace(item.Rating); v != "" {
			rec.Rating = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func systemPrompt() string {
	return "You are a travel guide. Answer with a JSON array only, no prose, " +
		"no markdown fences."
}

func userPrompt(city string, limit int) string {
	return fmt.Sprintf(
		"List the top %d points of interest in %s. Respond with a JSON array "+
			"where each element is an object with keys \"name\", \"category\" "+
			"and \"rating\" (a string like \"4.5\").",
		limit, city,
	)
}

// parsePOIArray extracts the first well-formed bracketed JSON array from the
// model output and unmarshals it.
func parsePOIArray(content string) ([]poiItem, error) {
	arr, ok := extractJSONArray(content)
	if !ok {
		return nil, errors.New("llm: no JSON array in model output")
	}
	var items []poiItem
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, fmt.Errorf("llm: decode places array: %w", err)
	}
	return items, nil
}

// extractJSONArray scans for the first balanced bracketed substring that is
// valid JSON, ignoring brackets inside string literals.
func extractJSONArray(s string) (string, bool) {
	for start := strings.IndexByte(s, '['); start >= 0 && start < len(s); {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			ch := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}
		rest := strings.IndexByte(s[start+1:], '[')
		if rest < 0 {
			break
		}
		start += 1 + rest
	}
	return "", false
}
