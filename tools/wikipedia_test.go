package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/backend"
)

func wikiServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			assert.Equal(t, "2", q.Get("srlimit"))
			_, _ = w.Write([]byte(`{"query":{"search":[{"pageid":11,"title":"Porto"},{"pageid":12,"title":"Douro"}]}}`))
		case q.Get("pageids") == "11":
			_, _ = w.Write([]byte(`{"query":{"pages":{"11":{"pageid":11,"title":"Porto","fullurl":"https://en.wikipedia.org/wiki/Porto","extract":"Porto is a city."}}}}`))
		case q.Get("pageids") == "12":
			_, _ = w.Write([]byte(`{"query":{"pages":{"12":{"pageid":12,"title":"Douro","fullurl":"https://en.wikipedia.org/wiki/Douro","extract":"A river."}}}}`))
		case q.Get("generator") == "search":
			assert.Equal(t, "intitle:Porto", q.Get("gsrsearch"))
			_, _ = w.Write([]byte(`{"query":{"pages":{
				"30":{"pageid":30,"title":"File:B.jpg","fullurl":"https://commons/B","thumbnail":{"source":"https://thumb/B"}},
				"4":{"pageid":4,"title":"File:A.jpg","fullurl":"https://commons/A","thumbnail":{"source":"https://thumb/A"}},
				"7":{"pageid":7,"title":"File:NoThumb.jpg","fullurl":"https://commons/N"}}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestWikipediaSearchArticles(t *testing.T) {
	server := wikiServer(t)
	defer server.Close()

	client := backend.NewBackendClient(server.URL+"/w/api.php", 0)
	w := NewWikipedia(client, client, nil)

	articles := w.SearchArticles(context.Background(), "Porto", 2)
	require.Len(t, articles, 2)
	assert.Equal(t, Article{Title: "Porto", URL: "https://en.wikipedia.org/wiki/Porto", Snippet: "Porto is a city."}, articles[0])

	out, err := w.ArticlesTool().Call(context.Background(), json.RawMessage(`{"query":"Porto","num_results":2}`))
	require.NoError(t, err)
	var decoded []Article
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, articles, decoded)
}

func TestWikipediaSearchArticlesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := backend.NewBackendClient(server.URL, 0)
	w := NewWikipedia(client, client, nil)
	assert.Empty(t, w.SearchArticles(context.Background(), "Porto", 2))
}

func TestWikipediaArticlesToolDoesNotCacheOutage(t *testing.T) {
	healthy := wikiServer(t)
	defer healthy.Close()

	var down atomic.Bool
	down.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		healthy.Config.Handler.ServeHTTP(w, r)
	}))
	defer server.Close()

	client := backend.NewBackendClient(server.URL, 0)
	tool := NewWikipedia(client, client, newTestEnv(t)).ArticlesTool()
	input := json.RawMessage(`{"query":"Porto","num_results":2}`)

	out, err := tool.Call(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	down.Store(false)
	out, err = tool.Call(context.Background(), input)
	require.NoError(t, err)
	var decoded []Article
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded, 2)
}

func TestWikipediaSearchImages(t *testing.T) {
	server := wikiServer(t)
	defer server.Close()

	client := backend.NewBackendClient(server.URL, 0)
	w := NewWikipedia(client, client, nil)

	out, err := w.SearchImages(context.Background(), "Porto", 0, 0)
	require.NoError(t, err)
	expected := "\nImage 1:\n  Title: File:A.jpg\n  URL: https://commons/A\n  Thumbnail: https://thumb/A\n" +
		"------------------------------" +
		"\nImage 2:\n  Title: File:B.jpg\n  URL: https://commons/B\n  Thumbnail: https://thumb/B\n" +
		"------------------------------"
	assert.Equal(t, expected, out)
}

func TestWikipediaSearchImagesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"batchcomplete":""}`))
	}))
	defer server.Close()

	client := backend.NewBackendClient(server.URL, 0)
	w := NewWikipedia(client, client, nil)
	out, err := w.SearchImages(context.Background(), "nothing", 5, 100)
	require.NoError(t, err)
	assert.Equal(t, "No images found for your query.", out)
}
