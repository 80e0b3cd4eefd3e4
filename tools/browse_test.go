package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractTextPrefersMainParagraphs(t *testing.T) {
	doc := docFrom(t, `<html><head><style>p{}</style></head><body>
		<nav>Menu</nav>
		<main><h1>Title</h1><p>  First paragraph. </p><script>alert(1)</script><p>Second   paragraph.</p></main>
		<footer>Copyright</footer></body></html>`)
	assert.Equal(t, "First paragraph.\nSecond\nparagraph.", ExtractText(doc))
}

func TestExtractTextFallsBackToBody(t *testing.T) {
	doc := docFrom(t, `<html><body><div>Hello <b>world</b></div><nav>skip</nav></body></html>`)
	assert.Equal(t, "Hello\nworld", ExtractText(doc))
}

func TestExtractTextTruncates(t *testing.T) {
	doc := docFrom(t, "<html><body><article><p>"+strings.Repeat("a", MaxPageLength+100)+"</p></article></body></html>")
	text := ExtractText(doc)
	assert.True(t, strings.HasSuffix(text, "...\n[Content truncated due to length]"))
	assert.Len(t, text, MaxPageLength+len("...\n[Content truncated due to length]"))

	// The limit counts characters, not bytes.
	cjk := strings.Repeat("京", 6000)
	doc = docFrom(t, "<html><body><main><p>"+cjk+"</p></main></body></html>")
	assert.Equal(t, cjk, ExtractText(doc))

	doc = docFrom(t, "<html><body><main><p>"+strings.Repeat("京", MaxPageLength+10)+"</p></main></body></html>")
	text = ExtractText(doc)
	assert.Equal(t, strings.Repeat("京", MaxPageLength)+"...\n[Content truncated due to length]", text)
}

func TestBrowseTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body><article><p>Visit the old town.</p></article></body></html>`))
	}))
	defer server.Close()

	b := NewBrowser(0, nil)
	tool := b.Tool("browse_webpage", "browse")

	out, err := tool.Call(context.Background(), json.RawMessage(`{"url":"`+server.URL+`/guide"}`))
	require.NoError(t, err)
	assert.Equal(t, "Content from "+server.URL+"/guide:\n\nVisit the old town.", out)

	out, err = tool.Call(context.Background(), json.RawMessage(`"`+server.URL+`/missing"`))
	require.NoError(t, err)
	assert.Contains(t, out, "status 404")
}
