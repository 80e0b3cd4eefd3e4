package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"travelplanner/backend"
	"travelplanner/cache"
)

// Article is one Wikipedia search hit with its intro extract.
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"fullurl"`
	Snippet string `json:"snippet"`
}

// Image is a Wikimedia Commons file with a thumbnail.
type Image struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// Wikipedia searches Wikipedia articles and Wikimedia Commons images.
type Wikipedia struct {
	articles *backend.Client
	commons  *backend.Client
	env      *Env
}

// NewWikipedia creates a client for the article and Commons endpoints.
func NewWikipedia(articles, commons *backend.Client, env *Env) *Wikipedia {
	return &Wikipedia{articles: articles, commons: commons, env: env}
}

// userAgent identifies the client, as the Wikimedia API policy asks.
const userAgent = "travelplanner/1.0 (https://github.com/travelplanner)"

func wikiHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	return h
}

type wikiPage struct {
	PageID    int    `json:"pageid"`
	Title     string `json:"title"`
	FullURL   string `json:"fullurl"`
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

type wikiQueryResponse struct {
	Query *struct {
		Search []struct {
			PageID int    `json:"pageid"`
			Title  string `json:"title"`
		} `json:"search"`
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

// SearchArticles finds up to numResults articles and fetches each one's intro extract.
// Failures are logged and yield an empty list.
func (w *Wikipedia) SearchArticles(ctx context.Context, query string, numResults int) []Article {
	articles, err := w.searchArticles(ctx, query, numResults)
	if err != nil {
		log.Errorf("Error searching articles: %v", err)
		return []Article{}
	}
	return articles
}

func (w *Wikipedia) searchArticles(ctx context.Context, query string, numResults int) ([]Article, error) {
	if numResults <= 0 {
		numResults = 10
	}
	log.Infof("Searching articles for query: %s", query)

	var search wikiQueryResponse
	err := w.articles.DoJSON(ctx, http.MethodGet, "", wikiHeaders(), url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(numResults)},
		"format":   {"json"},
		"origin":   {"*"},
	}, nil, &search)
	if err != nil {
		return nil, err
	}
	if search.Query == nil {
		return nil, errors.New("error parsing response: missing query")
	}

	results := make([]Article, 0, len(search.Query.Search))
	for _, hit := range search.Query.Search {
		var detail wikiQueryResponse
		err := w.articles.DoJSON(ctx, http.MethodGet, "", wikiHeaders(), url.Values{
			"action":      {"query"},
			"pageids":     {strconv.Itoa(hit.PageID)},
			"prop":        {"info|extracts|pageimages"},
			"inprop":      {"url"},
			"exintro":     {""},
			"explaintext": {""},
			"pithumbsize": {"250"},
			"format":      {"json"},
			"origin":      {"*"},
		}, nil, &detail)
		if err != nil {
			return nil, err
		}
		if detail.Query == nil {
			return nil, fmt.Errorf("error parsing response: missing page %d", hit.PageID)
		}
		page, ok := detail.Query.Pages[strconv.Itoa(hit.PageID)]
		if !ok {
			return nil, fmt.Errorf("error parsing response: missing page %d", hit.PageID)
		}
		results = append(results, Article{Title: page.Title, URL: page.FullURL, Snippet: page.Extract})
	}
	return results, nil
}

// SearchImages finds Commons files whose title matches query and formats those with thumbnails.
func (w *Wikipedia) SearchImages(ctx context.Context, query string, limit, thumbSize int) (string, error) {
	if limit <= 0 {
		limit = 20
	}
	if thumbSize <= 0 {
		thumbSize = 250
	}
	log.Infof("Searching images for query: %s", query)

	var data wikiQueryResponse
	err := w.commons.DoJSON(ctx, http.MethodGet, "", wikiHeaders(), url.Values{
		"action":       {"query"},
		"generator":    {"search"},
		"gsrnamespace": {"6"},
		"gsrsearch":    {"intitle:" + query},
		"gsrlimit":     {strconv.Itoa(limit)},
		"prop":         {"pageimages|info"},
		"pithumbsize":  {strconv.Itoa(thumbSize)},
		"inprop":       {"url"},
		"format":       {"json"},
		"origin":       {"*"},
	}, nil, &data)
	if err != nil {
		return "", fmt.Errorf("error occurred while searching for images: %w", err)
	}
	if data.Query == nil || len(data.Query.Pages) == 0 {
		return "No images found for your query.", nil
	}

	ids := make([]string, 0, len(data.Query.Pages))
	for id := range data.Query.Pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	var images []Image
	for _, id := range ids {
		p := data.Query.Pages[id]
		if p.Thumbnail == nil || p.Thumbnail.Source == "" {
			continue
		}
		images = append(images, Image{Title: p.Title, URL: p.FullURL, Thumbnail: p.Thumbnail.Source})
	}
	if len(images) == 0 {
		return "No images with thumbnails found for your query.", nil
	}
	return FormatImages(images), nil
}

// FormatImages renders images as numbered blocks separated by dashes.
func FormatImages(images []Image) string {
	separator := strings.Repeat("-", 30)
	var sb strings.Builder
	for i, img := range images {
		fmt.Fprintf(&sb, "\nImage %d:\n", i+1)
		fmt.Fprintf(&sb, "  Title: %s\n", img.Title)
		fmt.Fprintf(&sb, "  URL: %s\n", img.URL)
		fmt.Fprintf(&sb, "  Thumbnail: %s\n", img.Thumbnail)
		sb.WriteString(separator)
	}
	return sb.String()
}

// ArticlesTool exposes SearchArticles to agents.
func (w *Wikipedia) ArticlesTool() *FuncTool {
	return NewFuncTool("wikipedia_search_articles", "Search Wikipedia articles for information",
		`{"query": string, "num_results"?: int}`,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Query      string `json:"query"`
				NumResults int    `json:"num_results"`
			}
			if err := decodeArgs(input, &args, &args.Query); err != nil {
				return "", err
			}
			if args.Query == "" {
				return "", errors.New("query is required")
			}
			key := cache.Key(ServiceWikipedia, "articles", args.Query, strconv.Itoa(args.NumResults))
			out, err := w.env.run(ctx, ServiceWikipedia, key, func(ctx context.Context) (string, error) {
				articles, err := w.searchArticles(ctx, args.Query, args.NumResults)
				if err != nil {
					return "", err
				}
				if len(articles) == 0 {
					return "[]", nil
				}
				return toJSON(articles), nil
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", ctxErr
				}
				log.Errorf("Error searching articles: %v", err)
				return "[]", nil
			}
			return out, nil
		})
}

// ImagesTool exposes SearchImages to agents.
func (w *Wikipedia) ImagesTool() *FuncTool {
	return NewFuncTool("wikipedia_search_images", "Search Wikipedia for images related to a topic",
		`{"query": string, "limit"?: int, "thumb_size"?: int}`,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Query     string `json:"query"`
				Limit     int    `json:"limit"`
				ThumbSize int    `json:"thumb_size"`
			}
			if err := decodeArgs(input, &args, &args.Query); err != nil {
				return "", err
			}
			if args.Query == "" {
				return "", errors.New("query is required")
			}
			key := cache.Key(ServiceWikipedia, "images", args.Query, strconv.Itoa(args.Limit), strconv.Itoa(args.ThumbSize))
			return w.env.run(ctx, ServiceWikipedia, key, func(ctx context.Context) (string, error) {
				return w.SearchImages(ctx, args.Query, args.Limit, args.ThumbSize)
			})
		})
}
