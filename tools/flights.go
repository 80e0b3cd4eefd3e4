package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"travelplanner/backend"
	"travelplanner/cache"
)

// tokenSlack is subtracted from the token lifetime so a token is never used right at expiry.
const tokenSlack = 30 * time.Second

var travelClasses = map[string]bool{
	"ECONOMY":         true,
	"PREMIUM_ECONOMY": true,
	"BUSINESS":        true,
	"FIRST":           true,
}

// FlightQuery holds the flight-offers search parameters.
type FlightQuery struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	Adults        int    `json:"adults,omitempty"`
	Children      int    `json:"children,omitempty"`
	Infants       int    `json:"infants,omitempty"`
	TravelClass   string `json:"travel_class,omitempty"`
	NonStop       bool   `json:"non_stop,omitempty"`
	Currency      string `json:"currency,omitempty"`
	MaxPrice      int    `json:"max_price,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

func (q *FlightQuery) normalize() error {
	if q.Origin == "" || q.Destination == "" || q.DepartureDate == "" {
		return errors.New("origin, destination and departure_date are required")
	}
	if q.Adults <= 0 {
		q.Adults = 1
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 10
	}
	if q.TravelClass != "" {
		q.TravelClass = strings.ToUpper(q.TravelClass)
		if !travelClasses[q.TravelClass] {
			return fmt.Errorf("invalid travel_class %q: must be ECONOMY, PREMIUM_ECONOMY, BUSINESS or FIRST", q.TravelClass)
		}
	}
	return nil
}

func (q *FlightQuery) params() url.Values {
	p := url.Values{
		"originLocationCode":      {q.Origin},
		"destinationLocationCode": {q.Destination},
		"departureDate":           {q.DepartureDate},
		"adults":                  {strconv.Itoa(q.Adults)},
		"children":                {strconv.Itoa(q.Children)},
		"infants":                 {strconv.Itoa(q.Infants)},
		"currencyCode":            {q.Currency},
		"max":                     {strconv.Itoa(q.MaxResults)},
	}
	if q.ReturnDate != "" {
		p.Set("returnDate", q.ReturnDate)
	}
	if q.TravelClass != "" {
		p.Set("travelClass", q.TravelClass)
	}
	if q.NonStop {
		p.Set("nonStop", "true")
	}
	if q.MaxPrice > 0 {
		p.Set("maxPrice", strconv.Itoa(q.MaxPrice))
	}
	return p
}

type FlightSegment struct {
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
	Duration    string `json:"duration"`
	Departure   struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
}

// FlightOffer is one priced itinerary set from the flight-offers endpoint.
type FlightOffer struct {
	Price struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
	Itineraries []struct {
		Duration string          `json:"duration"`
		Segments []FlightSegment `json:"segments"`
	} `json:"itineraries"`
}

// Amadeus searches flight offers, authenticating with client credentials.
type Amadeus struct {
	client    *backend.Client
	apiKey    string
	apiSecret string
	env       *Env

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewAmadeus creates a flight search client authenticating with apiKey and apiSecret.
func NewAmadeus(client *backend.Client, apiKey, apiSecret string, env *Env) *Amadeus {
	return &Amadeus{client: client, apiKey: apiKey, apiSecret: apiSecret, env: env, now: time.Now}
}

// token returns a cached access token, requesting a new one when it is missing or about to expire.
func (a *Amadeus) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && a.now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	err := a.client.PostForm(ctx, "/v1/security/oauth2/token", url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {a.apiKey},
		"client_secret": {a.apiSecret},
	}, &result)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	if result.AccessToken == "" {
		return "", errors.New("token response has no access_token")
	}

	a.accessToken = result.AccessToken
	a.tokenExpiry = a.now().Add(time.Duration(result.ExpiresIn)*time.Second - tokenSlack)
	log.Debugf("Amadeus token refreshed, valid until %s", a.tokenExpiry.Format(time.RFC3339))
	return a.accessToken, nil
}

// Offers runs the flight-offers search and returns at most q.MaxResults offers.
func (a *Amadeus) Offers(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	if a.apiKey == "" || a.apiSecret == "" {
		return nil, errors.New("AMADEUS_API_KEY and AMADEUS_API_SECRET must be set")
	}
	if err := q.normalize(); err != nil {
		return nil, err
	}
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	var resp struct {
		Data []FlightOffer `json:"data"`
	}
	if err := a.client.DoJSON(ctx, http.MethodGet, "/v2/shopping/flight-offers", headers, q.params(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) > q.MaxResults {
		resp.Data = resp.Data[:q.MaxResults]
	}
	return resp.Data, nil
}

// Search returns the offers as a markdown report.
func (a *Amadeus) Search(ctx context.Context, q FlightQuery) (string, error) {
	if err := q.normalize(); err != nil {
		return "", err
	}
	key := cache.Key(ServiceAmadeus, toJSON(q))
	return a.env.run(ctx, ServiceAmadeus, key, func(ctx context.Context) (string, error) {
		offers, err := a.Offers(ctx, q)
		if err != nil {
			return "", err
		}
		return FormatFlights(q.Origin, q.Destination, offers), nil
	})
}

func writeSegments(sb *strings.Builder, segments []FlightSegment) {
	for j, s := range segments {
		fmt.Fprintf(sb, "- **Segment %d**: %s %s\n", j+1, s.CarrierCode, s.Number)
		fmt.Fprintf(sb, "  - Departure: %s from %s\n", s.Departure.At, s.Departure.IATACode)
		fmt.Fprintf(sb, "  - Arrival: %s at %s\n", s.Arrival.At, s.Arrival.IATACode)
		fmt.Fprintf(sb, "  - Duration: %s\n", s.Duration)
	}
}

// FormatFlights renders offers as numbered options with outbound and return journeys.
func FormatFlights(origin, destination string, offers []FlightOffer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Flight Options from %s to %s\n\n", origin, destination)
	if len(offers) == 0 {
		sb.WriteString("No flight offers found for your search criteria.\n")
		return sb.String()
	}
	for i, offer := range offers {
		fmt.Fprintf(&sb, "## Option %d - %s %s\n\n", i+1, offer.Price.Total, offer.Price.Currency)
		if len(offer.Itineraries) > 0 {
			sb.WriteString("### Outbound Journey\n")
			writeSegments(&sb, offer.Itineraries[0].Segments)
		}
		if len(offer.Itineraries) > 1 {
			sb.WriteString("\n### Return Journey\n")
			writeSegments(&sb, offer.Itineraries[1].Segments)
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}

// FlightErrorReport renders a failed search the way the reports expect it.
func FlightErrorReport(err error) string {
	msg := "# Error Searching Flights\n\nError searching for flight offers: " + err.Error()
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		msg += fmt.Sprintf("\n\nResponse status code: %d", statusErr.StatusCode)
		msg += fmt.Sprintf("\nResponse content: %s...", statusErr.Body)
	}
	return msg
}

// Tool exposes the flight search to agents. Upstream failures come back as an error report.
func (a *Amadeus) Tool() *FuncTool {
	return NewFuncTool("search_flights", "Search for flight offers between two airports or cities",
		`{"origin": IATA code, "destination": IATA code, "departure_date": "YYYY-MM-DD", "return_date"?: "YYYY-MM-DD", "adults"?: int, "children"?: int, "infants"?: int, "travel_class"?: "ECONOMY"|"PREMIUM_ECONOMY"|"BUSINESS"|"FIRST", "non_stop"?: bool, "currency"?: string, "max_price"?: int, "max_results"?: int}`,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var q FlightQuery
			if err := decodeArgs(input, &q, nil); err != nil {
				return "", err
			}
			out, err := a.Search(ctx, q)
			if err != nil {
				var statusErr *backend.StatusError
				if errors.As(err, &statusErr) || errors.Is(err, context.DeadlineExceeded) {
					return FlightErrorReport(err), nil
				}
				return "", err
			}
			return out, nil
		})
}
