package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody is how much of a failed response body is kept on StatusError.
const maxErrorBody = 500

// StatusError is returned when an upstream API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client represents a client to communicate with one upstream API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient creates a new Client with the specified base URL.
func NewBackendClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the root every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Forward sends the HTTP request to the upstream server and returns the raw response.
// The caller closes the body.
func (c *Client) Forward(ctx context.Context, method, path string, headers http.Header, body io.Reader) (*http.Response, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// DoJSON sends in (if non-nil) as a JSON body, appends query to path and decodes a 2xx response into out
// (if non-nil). Non-2xx responses produce a *StatusError.
func (c *Client) DoJSON(ctx context.Context, method, path string, headers http.Header, query url.Values, in, out any) error {
	var body io.Reader
	h := headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
		h.Set("Content-Type", "application/json")
	}
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}

	resp, err := c.Forward(ctx, method, path, h, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// PostForm sends an application/x-www-form-urlencoded body and decodes the JSON reply into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Forward(ctx, http.MethodPost, path, h, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
