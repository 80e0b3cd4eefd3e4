package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"travelplanner/cache"
)

// MaxPageLength caps the extracted text returned to the model, in characters.
const MaxPageLength = 8000

var contentSelectors = []string{
	"main", "article", ".content", "#content", ".main-content",
	".article", ".post", ".entry", ".blog-post",
}

var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "max-age=0",
}

// Browser fetches web pages and extracts their main text.
type Browser struct {
	httpClient *http.Client
	env        *Env
}

// NewBrowser creates a page fetcher; a non-positive timeout means 30s.
func NewBrowser(timeout time.Duration, env *Env) *Browser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Browser{httpClient: &http.Client{Timeout: timeout}, env: env}
}

// Browse fetches url and returns "Content from <url>:" followed by the extracted text.
func (b *Browser) Browse(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("error browsing webpage %s: %w", url, err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error browsing webpage %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("error browsing webpage %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error extracting content from %s: %w", url, err)
	}
	return fmt.Sprintf("Content from %s:\n\n%s", url, ExtractText(doc)), nil
}

// ExtractText pulls readable text from the page's main content container, or the body.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, iframe, nav, footer").Remove()

	var main *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			main = s
			break
		}
	}

	var text string
	if main != nil {
		paragraphs := main.Find("p")
		if paragraphs.Length() > 0 {
			parts := make([]string, 0, paragraphs.Length())
			paragraphs.Each(func(_ int, p *goquery.Selection) {
				parts = append(parts, strings.TrimSpace(p.Text()))
			})
			text = strings.Join(parts, "\n\n")
		} else {
			text = blockText(main)
		}
	} else {
		text = blockText(doc.Find("body"))
	}

	text = cleanLines(text)
	if utf8.RuneCountInString(text) > MaxPageLength {
		text = truncateRunes(text, MaxPageLength) + "...\n[Content truncated due to length]"
	}
	return text
}

// blockText joins the text of each descendant text node on separate lines.
func blockText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := strings.TrimSpace(c.Text()); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if t := blockText(c); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// cleanLines trims every line, splits on double spaces and drops empty chunks.
func cleanLines(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return strings.Join(chunks, "\n")
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Tool exposes Browse under the given name.
func (b *Browser) Tool(name, description string) *FuncTool {
	return NewFuncTool(name, description, `{"url": string}`,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				URL string `json:"url"`
			}
			if err := decodeArgs(input, &args, &args.URL); err != nil {
				return "", err
			}
			if args.URL == "" {
				return "", errors.New("url is required")
			}
			out, err := b.env.run(ctx, ServiceBrowse, cache.Key(ServiceBrowse, args.URL), func(ctx context.Context) (string, error) {
				return b.Browse(ctx, args.URL)
			})
			if err != nil {
				// The model gets the failure as text and can try another page.
				return err.Error(), nil
			}
			return out, nil
		})
}
