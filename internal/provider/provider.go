// Package provider holds the plumbing shared by the external data source
// clients: lazy credential resolution from the parameter store and a small
// JSON-over-HTTP request helper with status-aware errors.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotConfigured signals that a provider credential is absent. The
// aggregator treats it like any other provider failure: skip and fall back.
var ErrNotConfigured = errors.New("provider: credential not configured")

// Getter is the parameter store read interface providers depend on.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// KeySource resolves an API key from the parameter store on first use and
// caches the outcome for the lifetime of the process. A missing or empty
// parameter resolves to ErrNotConfigured.
type KeySource struct {
	getter Getter
	name   string

	once sync.Once
	key  string
	err  error
}

func NewKeySource(getter Getter, name string) (*KeySource, error) {
	if getter == nil {
		return nil, errors.New("provider: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("provider: parameter name must not be empty")
	}
	return &KeySource{getter: getter, name: name}, nil
}

func (k *KeySource) Resolve(ctx context.Context) (string, error) {
	k.once.Do(func() {
		raw, err := k.getter.GetParameter(ctx, k.name)
		if err != nil {
			k.err = fmt.Errorf("%w: %s: %v", ErrNotConfigured, k.name, err)
			return
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			k.err = fmt.Errorf("%w: %s is empty", ErrNotConfigured, k.name)
			return
		}
		k.key = raw
	})
	return k.key, k.err
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("provider: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// DefaultHTTPClient returns the shared default client used when a provider
// was constructed without an explicit one.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// DoJSON executes the request and returns the raw body of a 2xx response.
// Non-2xx responses become an *HTTPStatusError with a truncated body.
func DoJSON(client *http.Client, req *http.Request) ([]byte, error) {
	if client == nil {
		client = DefaultHTTPClient()
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        req.URL.String(),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
