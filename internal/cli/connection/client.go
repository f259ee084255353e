package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/ovecore-go/internal/infra/buildinfo"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Client performs REST calls against one instance.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewClient creates a client for server, given as host:port or a full
// http(s) URL.
func NewClient(server string, timeout time.Duration) *Client {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		userAgent: buildinfo.UserAgent("ovecore-cli"),
	}
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and decodes the response into target.
func (c *Client) Get(ctx context.Context, path string, query url.Values, target any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, target)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body, target any) error {
	return c.Do(ctx, http.MethodPost, path, query, body, target)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, target any) error {
	return c.Do(ctx, http.MethodDelete, path, query, nil, target)
}

// Do performs a request. A nil target discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, target any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes a JSON response into target and closes the body.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Code:    resp.Header.Get("X-Error-Code"),
			Message: http.StatusText(resp.StatusCode),
		}
		var body struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			switch {
			case body.Error != "":
				apiErr.Message = body.Error
			case body.Reason != "":
				apiErr.Message = body.Reason
			}
		}
		return apiErr
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
