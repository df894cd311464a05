package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SessionTokenHeader carries an anonymous player's session token
const SessionTokenHeader = "X-Session-Token"

// requestTimeout bounds ordinary API calls. Event streams use their own
// client with no timeout.
const requestTimeout = 30 * time.Second

// Client talks to the tracker API on behalf of one identity. A bearer token
// for a registered player wins over an anonymous session token when both
// are configured.
type Client struct {
	baseURL string
	token   string
	session string

	api    *http.Client
	stream *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token, session string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		session: session,
		api:     &http.Client{Timeout: requestTimeout},
		stream:  &http.Client{},
	}
}

// APIError is the error body every failed API call returns
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.session != "":
		req.Header.Set(SessionTokenHeader, c.session)
	}
	return req, nil
}

// readError turns a non-2xx response into an *APIError when the body has
// one, or a plain error carrying the status otherwise.
func readError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var wrapped ErrorResponse
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Error.Code != "" {
		wrapped.Error.Status = resp.StatusCode
		return &wrapped.Error
	}
	return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
}

// Do sends a JSON request and decodes the JSON response into result, which
// may be nil.
func (c *Client) Do(method, path string, body, result any) error {
	req, err := c.newRequest(context.Background(), method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return readError(resp)
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// Stream opens a server-sent event stream. The caller closes the body;
// cancelling ctx ends the stream.
func (c *Client) Stream(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, readError(resp)
	}
	return resp, nil
}

func (c *Client) Get(path string, result any) error {
	return c.Do(http.MethodGet, path, nil, result)
}

func (c *Client) Post(path string, body, result any) error {
	return c.Do(http.MethodPost, path, body, result)
}

func (c *Client) Put(path string, body, result any) error {
	return c.Do(http.MethodPut, path, body, result)
}

func (c *Client) Delete(path string) error {
	return c.Do(http.MethodDelete, path, nil, nil)
}
