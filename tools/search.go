package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"travelplanner/backend"
	"travelplanner/cache"
)

// SearchType selects the Serper endpoint.
type SearchType string

const (
	SearchWeb      SearchType = "search"
	SearchNews     SearchType = "news"
	SearchImages   SearchType = "images"
	SearchShopping SearchType = "shopping"
)

// SearchOptions are the optional Serper parameters. NumResults 0 means the default of 10.
type SearchOptions struct {
	Type       SearchType `json:"search_type,omitempty"`
	NumResults int        `json:"num_results,omitempty"`
	DateRange  string     `json:"date_range,omitempty"` // h, d, w, m or y
	Location   string     `json:"location,omitempty"`
}

// SearchResult is the subset of a Serper response the reports use.
type SearchResult struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	News []struct {
		Title    string `json:"title"`
		Source   string `json:"source"`
		Link     string `json:"link"`
		Date     string `json:"date"`
		Snippet  string `json:"snippet"`
		ImageURL string `json:"imageUrl"`
	} `json:"news"`
	Images []struct {
		Title  string `json:"title"`
		Link   string `json:"link"`
		Source string `json:"source"`
	} `json:"images"`
	Shopping []struct {
		Title string `json:"title"`
		Price string `json:"price"`
		Link  string `json:"link"`
	} `json:"shopping"`
}

type serperRequest struct {
	Q        string `json:"q"`
	GL       string `json:"gl"`
	HL       string `json:"hl"`
	Num      int    `json:"num,omitempty"`
	TBS      string `json:"tbs,omitempty"`
	Location string `json:"location,omitempty"`
}

// Serper queries the google.serper.dev search API.
type Serper struct {
	client *backend.Client
	apiKey string
	env    *Env
}

// NewSerper creates a Serper client.
func NewSerper(client *backend.Client, apiKey string, env *Env) *Serper {
	return &Serper{client: client, apiKey: apiKey, env: env}
}

// Search runs one query and returns the decoded result.
func (s *Serper) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	if s.apiKey == "" {
		return nil, errors.New("SERPER_API_KEY environment variable is not set")
	}
	searchType := opts.Type
	if searchType == "" {
		searchType = SearchWeb
	}
	switch searchType {
	case SearchWeb, SearchNews, SearchImages, SearchShopping:
	default:
		return nil, fmt.Errorf("unsupported search type %q", searchType)
	}

	num := opts.NumResults
	if num <= 0 {
		num = 10
	}
	req := serperRequest{Q: query, GL: "us", HL: "en", Num: num, Location: opts.Location}
	if opts.DateRange != "" {
		switch opts.DateRange {
		case "h", "d", "w", "m", "y":
			req.TBS = "qdr:" + opts.DateRange
		default:
			return nil, fmt.Errorf("unsupported date range %q", opts.DateRange)
		}
	}

	headers := http.Header{}
	headers.Set("X-API-KEY", s.apiKey)

	var result SearchResult
	if err := s.client.DoJSON(ctx, http.MethodPost, "/"+string(searchType), headers, nil, req, &result); err != nil {
		return nil, fmt.Errorf("error making request to Serper API for query '%s': %w", query, err)
	}
	return &result, nil
}

// SearchFormatted runs every query and formats each result. A failed query contributes an error line
// instead of failing the whole call.
func (s *Serper) SearchFormatted(ctx context.Context, queries []string, opts SearchOptions) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		key := cache.Key(ServiceSerper, q, toJSON(opts))
		text, err := s.env.run(ctx, ServiceSerper, key, func(ctx context.Context) (string, error) {
			res, err := s.Search(ctx, q, opts)
			if err != nil {
				return "", err
			}
			return FormatSearchResult(res), nil
		})
		if err != nil {
			text = err.Error()
		}
		out = append(out, text)
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FormatSearchResult renders the non-empty sections of a Serper result as numbered lists.
func FormatSearchResult(r *SearchResult) string {
	var sb strings.Builder

	if len(r.Organic) > 0 {
		sb.WriteString("Organic Results:\n")
		for i, o := range r.Organic {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, orDefault(o.Title, "No Title"))
			fmt.Fprintf(&sb, "   URL: %s\n", orDefault(o.Link, "No Link"))
			fmt.Fprintf(&sb, "   Snippet: %s\n\n", orDefault(o.Snippet, "No Snippet"))
		}
	}
	if len(r.News) > 0 {
		sb.WriteString("News Results:\n")
		for i, n := range r.News {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, orDefault(n.Title, "No Title"))
			fmt.Fprintf(&sb, "   Source: %s\n", orDefault(n.Source, "No Source"))
			fmt.Fprintf(&sb, "   URL: %s\n", orDefault(n.Link, "No Link"))
			fmt.Fprintf(&sb, "   Date: %s\n", orDefault(n.Date, "No Date"))
			fmt.Fprintf(&sb, "   Snippet: %s\n", orDefault(n.Snippet, "No Snippet"))
			fmt.Fprintf(&sb, "   Image URL: %s\n\n", orDefault(n.ImageURL, "No Image URL"))
		}
	}
	if len(r.Images) > 0 {
		sb.WriteString("Image Results:\n")
		for i, img := range r.Images {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, orDefault(img.Title, "No Title"))
			fmt.Fprintf(&sb, "   URL: %s\n", orDefault(img.Link, "No Link"))
			fmt.Fprintf(&sb, "   Source: %s\n\n", orDefault(img.Source, "No Source"))
		}
	}
	if len(r.Shopping) > 0 {
		sb.WriteString("Shopping Results:\n")
		for i, item := range r.Shopping {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, orDefault(item.Title, "No Title"))
			fmt.Fprintf(&sb, "   Price: %s\n", orDefault(item.Price, "No Price"))
			fmt.Fprintf(&sb, "   URL: %s\n\n", orDefault(item.Link, "No Link"))
		}
	}
	return strings.TrimSpace(sb.String())
}

type searchArgs struct {
	Query   string   `json:"query"`
	Queries []string `json:"queries"`
	SearchOptions
}

// Tool exposes the search under the given name (the agents use different names for the same API).
func (s *Serper) Tool(name, description string) *FuncTool {
	return NewFuncTool(name, description,
		`{"query": string, "search_type"?: "search"|"news"|"images"|"shopping", "num_results"?: int, "date_range"?: "h"|"d"|"w"|"m"|"y", "location"?: string}`,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args searchArgs
			if err := decodeArgs(input, &args, &args.Query); err != nil {
				return "", err
			}
			queries := args.Queries
			if args.Query != "" {
				queries = append([]string{args.Query}, queries...)
			}
			if len(queries) == 0 {
				return "", errors.New("query is required")
			}
			return strings.Join(s.SearchFormatted(ctx, queries, args.SearchOptions), "\n\n"), nil
		})
}
