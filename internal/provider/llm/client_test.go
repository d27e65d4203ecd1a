package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"travelbot/internal/domain"
	"travelbot/internal/provider"
)

type fakeGetter struct {
	value string
	err   error
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	return f.value, f.err
}

func chatBody(content string) string {
	msg, _ := json.Marshal(content)
	return fmt.Sprintf(`{"choices": [{"message": {"role": "assistant", "content": %s}}]}`, msg)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	client, err := New(&fakeGetter{value: "sk-test"}, "/travelbot/openai-api-key", opts...)
	require.NoError(t, err)
	return client
}

func TestFetch_ParsesPlacesArray(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(chatBody(`[
			{"name": "Belém Tower", "category": "Monument", "rating": "4.8"},
			{"name": "Alfama", "category": "", "rating": ""}
		]`)))
	}, WithModel("test-model"))

	records, err := client.Fetch(context.Background(), domain.KindPOI, "lisbon", 5)
	require.NoError(t, err)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	require.Contains(t, gotReq.Messages[1].Content, "lisbon")

	require.Len(t, records, 2)
	require.Equal(t, "Belém Tower", records[0].Name)
	require.Equal(t, "Monument", records[0].Category)
	require.Equal(t, "llm", records[0].Source)
	require.Equal(t, "Attraction", records[1].Category, "empty fields fall back to defaults")
	require.Equal(t, "4.0", records[1].Rating)
}

func TestFetch_TolerantOfSurroundingProse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		content := "Sure! Here are the top places:\n```json\n" +
			`[{"name": "Old Town", "category": "District", "rating": "4.5"}]` +
			"\n```\nEnjoy your trip [1]."
		_, _ = w.Write([]byte(chatBody(content)))
	})

	records, err := client.Fetch(context.Background(), domain.KindPOI, "lisbon", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Old Town", records[0].Name)
}

func TestFetch_SkipsNamelessItemsAndTruncates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatBody(`[
			{"name": "  ", "category": "X", "rating": "1"},
			{"name": "A"}, {"name": "B"}, {"name": "C"}
		]`)))
	})

	records, err := client.Fetch(context.Background(), domain.KindPOI, "lisbon", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "A", records[0].Name)
}

func TestFetch_NoArrayInOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatBody("I cannot help with that.")))
	})

	_, err := client.Fetch(context.Background(), domain.KindPOI, "lisbon", 5)
	require.ErrorContains(t, err, "no JSON array")
}

func TestFetch_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Fetch(context.Background(), domain.KindPOI, "lisbon", 5)
	require.ErrorContains(t, err, "no choices")
}

func TestFetch_UnsupportedKind(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Fetch(context.Background(), domain.KindWeather, "lisbon", 1)
	require.Error(t, err)
}

func TestFetch_MissingKeyIsNotConfigured(t *testing.T) {
	client, err := New(&fakeGetter{value: ""}, "/travelbot/openai-api-key")
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), domain.KindPOI, "lisbon", 5)
	require.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestExtractJSONArray(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "bare array", input: `[1,2,3]`, want: `[1,2,3]`, ok: true},
		{name: "array in prose", input: `here you go: ["a","b"] done`, want: `["a","b"]`, ok: true},
		{name: "brackets inside strings", input: `[{"name": "Arc [de] Triomphe"}]`, want: `[{"name": "Arc [de] Triomphe"}]`, ok: true},
		{name: "escaped quotes", input: `[{"name": "the \"old\" town"}]`, want: `[{"name": "the \"old\" town"}]`, ok: true},
		{name: "invalid first candidate", input: `[broken then ["ok"]`, want: `["ok"]`, ok: true},
		{name: "nested arrays", input: `[[1],[2]]`, want: `[[1],[2]]`, ok: true},
		{name: "no array", input: `nothing here`, ok: false},
		{name: "unbalanced", input: `[1, 2`, ok: false},
		{name: "empty input", input: ``, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSONArray(tc.input)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
