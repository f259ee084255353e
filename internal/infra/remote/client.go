// Package remote provides the outbound HTTP clients of OVE core.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yndnr/ovecore-go/internal/infra/buildinfo"
)

// DefaultTimeout is the transport-level timeout of a client without a
// context deadline.
const DefaultTimeout = 30 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Reason string // "error" field of the response body, if any
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

// httpClient is the shared JSON request helper.
type httpClient struct {
	client    *http.Client
	userAgent string
}

func newHTTPClient(client *http.Client) httpClient {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return httpClient{
		client:    client,
		userAgent: buildinfo.UserAgent("ovecore-server"),
	}
}

// do sends a request with an optional JSON body and decodes a JSON
// response into target when target is not nil.
func (c httpClient) do(ctx context.Context, method, url string, body, target any) error {
	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		bodyReader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, URL: url, Status: resp.StatusCode}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil {
			statusErr.Reason = errResp.Error
		}
		return statusErr
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := target.(*json.RawMessage); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		*raw = bytes.TrimSpace(data)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
