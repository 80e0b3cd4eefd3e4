package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/backend"
)

func TestSerperSearch(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "festivals in lisbon", body["q"])
		assert.Equal(t, "us", body["gl"])
		assert.Equal(t, "qdr:m", body["tbs"])
		assert.EqualValues(t, 5, body["num"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"news":[{"title":"Santo Antonio","source":"Time Out","link":"https://example.com/a","date":"2 days ago","snippet":"June party"}]}`))
	}))
	defer server.Close()

	s := NewSerper(backend.NewBackendClient(server.URL, 0), "secret", newTestEnv(t))
	tool := s.Tool("serper_search", "search")

	out, err := tool.Call(context.Background(), json.RawMessage(`{"query":"festivals in lisbon","search_type":"news","num_results":5,"date_range":"m"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "News Results:\n1. Santo Antonio")
	assert.Contains(t, out, "   Source: Time Out")
	assert.Contains(t, out, "   Image URL: No Image URL")

	_, err = tool.Call(context.Background(), json.RawMessage(`{"query":"festivals in lisbon","search_type":"news","num_results":5,"date_range":"m"}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "second call should be served from cache")
}

func TestSerperSearchErrorsPerQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	s := NewSerper(backend.NewBackendClient(server.URL, 0), "secret", nil)
	out := s.SearchFormatted(context.Background(), []string{"a", "b"}, SearchOptions{})
	require.Len(t, out, 2)
	assert.True(t, strings.HasPrefix(out[0], "error making request to Serper API for query 'a'"))
	assert.Contains(t, out[1], "status 403")
}

func TestSerperSearchValidation(t *testing.T) {
	s := NewSerper(backend.NewBackendClient("http://unused", 0), "", nil)
	_, err := s.Search(context.Background(), "q", SearchOptions{})
	assert.ErrorContains(t, err, "SERPER_API_KEY")

	s = NewSerper(backend.NewBackendClient("http://unused", 0), "key", nil)
	_, err = s.Search(context.Background(), "q", SearchOptions{Type: "videos"})
	assert.Error(t, err)
	_, err = s.Search(context.Background(), "q", SearchOptions{DateRange: "decade"})
	assert.Error(t, err)
}

func TestFormatSearchResultOrganic(t *testing.T) {
	var r SearchResult
	require.NoError(t, json.Unmarshal([]byte(`{"organic":[{"title":"Kyoto","link":"https://kyoto.travel"}]}`), &r))
	assert.Equal(t, "Organic Results:\n1. Kyoto\n   URL: https://kyoto.travel\n   Snippet: No Snippet", FormatSearchResult(&r))
	assert.Equal(t, "", FormatSearchResult(&SearchResult{}))
}
