package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelplanner/backend"
)

const offersJSON = `{"data":[
 {"price":{"total":"412.50","currency":"EUR"},"itineraries":[
   {"segments":[{"carrierCode":"TP","number":"1351","duration":"PT2H","departure":{"iataCode":"LIS","at":"2025-06-10T08:00:00"},"arrival":{"iataCode":"MAD","at":"2025-06-10T10:00:00"}}]},
   {"segments":[{"carrierCode":"TP","number":"1352","duration":"PT1H10M","departure":{"iataCode":"MAD","at":"2025-06-15T11:00:00"},"arrival":{"iataCode":"LIS","at":"2025-06-15T11:10:00"}}]}]},
 {"price":{"total":"500.00","currency":"EUR"},"itineraries":[{"segments":[]}]}
]}`

func amadeusServer(t *testing.T, tokens *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			atomic.AddInt32(tokens, 1)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "id", r.PostForm.Get("client_id"))
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":1799}`))
		case "/v2/shopping/flight-offers":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			q := r.URL.Query()
			if q.Get("originLocationCode") == "XXX" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"errors":[{"title":"INVALID LOCATION"}]}`))
				return
			}
			assert.Equal(t, "LIS", q.Get("originLocationCode"))
			assert.Equal(t, "1", q.Get("adults"))
			assert.Equal(t, "USD", q.Get("currencyCode"))
			assert.Equal(t, "BUSINESS", q.Get("travelClass"))
			assert.Equal(t, "true", q.Get("nonStop"))
			_, _ = w.Write([]byte(offersJSON))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAmadeusSearch(t *testing.T) {
	var tokens int32
	server := amadeusServer(t, &tokens)
	defer server.Close()

	a := NewAmadeus(backend.NewBackendClient(server.URL, 0), "id", "secret", nil)
	out, err := a.Search(context.Background(), FlightQuery{
		Origin: "LIS", Destination: "MAD", DepartureDate: "2025-06-10", ReturnDate: "2025-06-15",
		TravelClass: "business", NonStop: true, MaxResults: 1,
	})
	require.NoError(t, err)

	expected := "# Flight Options from LIS to MAD\n\n" +
		"## Option 1 - 412.50 EUR\n\n" +
		"### Outbound Journey\n" +
		"- **Segment 1**: TP 1351\n" +
		"  - Departure: 2025-06-10T08:00:00 from LIS\n" +
		"  - Arrival: 2025-06-10T10:00:00 at MAD\n" +
		"  - Duration: PT2H\n" +
		"\n### Return Journey\n" +
		"- **Segment 1**: TP 1352\n" +
		"  - Departure: 2025-06-15T11:00:00 from MAD\n" +
		"  - Arrival: 2025-06-15T11:10:00 at LIS\n" +
		"  - Duration: PT1H10M\n" +
		"\n---\n\n"
	assert.Equal(t, expected, out)
}

func TestAmadeusTokenIsReused(t *testing.T) {
	var tokens int32
	server := amadeusServer(t, &tokens)
	defer server.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAmadeus(backend.NewBackendClient(server.URL, 0), "id", "secret", nil)
	a.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := a.token(ctx)
	require.NoError(t, err)
	_, err = a.token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokens))

	// 1799s lifetime minus the 30s slack
	now = now.Add(1770 * time.Second)
	_, err = a.token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&tokens))
}

func TestAmadeusToolErrorReport(t *testing.T) {
	var tokens int32
	server := amadeusServer(t, &tokens)
	defer server.Close()

	a := NewAmadeus(backend.NewBackendClient(server.URL, 0), "id", "secret", nil)
	out, err := a.Tool().Call(context.Background(), json.RawMessage(`{"origin":"XXX","destination":"MAD","departure_date":"2025-06-10"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "# Error Searching Flights\n\nError searching for flight offers: ")
	assert.Contains(t, out, "Response status code: 400")
	assert.Contains(t, out, "INVALID LOCATION")
}

func TestAmadeusValidation(t *testing.T) {
	a := NewAmadeus(backend.NewBackendClient("http://unused", 0), "id", "secret", nil)
	_, err := a.Search(context.Background(), FlightQuery{Origin: "LIS", Destination: "MAD", DepartureDate: "2025-06-10", TravelClass: "luxury"})
	assert.ErrorContains(t, err, "invalid travel_class")

	_, err = a.Search(context.Background(), FlightQuery{Origin: "LIS"})
	assert.Error(t, err)

	a = NewAmadeus(backend.NewBackendClient("http://unused", 0), "", "", nil)
	_, err = a.Offers(context.Background(), FlightQuery{Origin: "LIS", Destination: "MAD", DepartureDate: "2025-06-10"})
	assert.ErrorContains(t, err, "AMADEUS_API_KEY")
}

func TestFormatFlightsEmpty(t *testing.T) {
	assert.Equal(t, "# Flight Options from LIS to MAD\n\nNo flight offers found for your search criteria.\n", FormatFlights("LIS", "MAD", nil))
}
