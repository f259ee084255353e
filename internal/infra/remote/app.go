// Package remote provides the outbound HTTP clients of OVE core.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AppClient calls the instance endpoints of application servers.
type AppClient struct {
	http httpClient
}

// NewAppClient creates an AppClient. A nil client uses a default one.
func NewAppClient(client *http.Client) *AppClient {
	return &AppClient{http: newHTTPClient(client)}
}

// FlushInstance discards the instance of one section.
func (c *AppClient) FlushInstance(ctx context.Context, appURL string, id int) error {
	return c.http.do(ctx, http.MethodPost, instanceURL(appURL, id, "flush"), nil, nil)
}

// FlushAll discards every instance held by an application server.
func (c *AppClient) FlushAll(ctx context.Context, appURL string) error {
	return c.http.do(ctx, http.MethodPost, trim(appURL)+"/instances/flush", nil, nil)
}

// GetState fetches the state of an instance.
func (c *AppClient) GetState(ctx context.Context, appURL string, id int) (json.RawMessage, error) {
	var state json.RawMessage
	if err := c.http.do(ctx, http.MethodGet, instanceURL(appURL, id, "state"), nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// PostState replaces the state of an instance.
func (c *AppClient) PostState(ctx context.Context, appURL string, id int, state json.RawMessage) error {
	return c.http.do(ctx, http.MethodPost, instanceURL(appURL, id, "state"), state, nil)
}

// PostNamedState publishes a named state.
func (c *AppClient) PostNamedState(ctx context.Context, appURL, name string, state json.RawMessage) error {
	return c.http.do(ctx, http.MethodPost, trim(appURL)+"/states/"+url.PathEscape(name), state, nil)
}

func instanceURL(appURL string, id int, action string) string {
	return fmt.Sprintf("%s/instances/%d/%s", trim(appURL), id, action)
}

func trim(u string) string {
	return strings.TrimRight(u, "/")
}
