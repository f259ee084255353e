// Package remote provides the outbound HTTP clients of OVE core.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
)

// InstanceClient calls the HTTP API of other OVE core instances.
type InstanceClient struct {
	http httpClient
}

// NewInstanceClient creates an InstanceClient. A nil client uses a
// default one.
func NewInstanceClient(client *http.Client) *InstanceClient {
	return &InstanceClient{http: newHTTPClient(client)}
}

// sectionBody is the wire form of a section create or update. App is
// always sent so that a replica drops its binding with the primary's.
type sectionBody struct {
	Space string      `json:"space"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	W     float64     `json:"w"`
	H     float64     `json:"h"`
	App   *domain.App `json:"app"`
}

func bodyOf(spec *service.ReplicaSpec) *sectionBody {
	return &sectionBody{
		Space: spec.Space,
		X:     spec.Rect.X,
		Y:     spec.Rect.Y,
		W:     spec.Rect.W,
		H:     spec.Rect.H,
		App:   spec.App,
	}
}

// SpaceGeometry fetches the bounding size of a remote space.
func (c *InstanceClient) SpaceGeometry(ctx context.Context, ep domain.Endpoint) (domain.Size, error) {
	var size domain.Size
	u := ep.BaseURL() + "/spaces/" + url.PathEscape(ep.Space) + "/geometry"
	if err := c.http.do(ctx, http.MethodGet, u, nil, &size); err != nil {
		return domain.Size{}, err
	}
	return size, nil
}

// CreateSection creates a replica and returns its id on the remote side.
func (c *InstanceClient) CreateSection(ctx context.Context, ep domain.Endpoint, spec *service.ReplicaSpec) (int, error) {
	var resp struct {
		ID *int `json:"id"`
	}
	if err := c.http.do(ctx, http.MethodPost, override(ep.BaseURL()+"/section"), bodyOf(spec), &resp); err != nil {
		return 0, err
	}
	if resp.ID == nil {
		return 0, fmt.Errorf("create section on %s: response has no id", ep.Host)
	}
	return *resp.ID, nil
}

// UpdateSection replaces a replica's placement and binding.
func (c *InstanceClient) UpdateSection(ctx context.Context, ep domain.Endpoint, id int, spec *service.ReplicaSpec) error {
	return c.http.do(ctx, http.MethodPost, override(sectionURL(ep, id)), bodyOf(spec), nil)
}

// DeleteSection deletes a replica.
func (c *InstanceClient) DeleteSection(ctx context.Context, ep domain.Endpoint, id int) error {
	return c.http.do(ctx, http.MethodDelete, override(sectionURL(ep, id)), nil, nil)
}

// DeleteSpace deletes every section of a remote space.
func (c *InstanceClient) DeleteSpace(ctx context.Context, ep domain.Endpoint) error {
	u := ep.BaseURL() + "/sections?space=" + url.QueryEscape(ep.Space)
	return c.http.do(ctx, http.MethodDelete, override(u), nil, nil)
}

// Event forwards an application event to a remote section.
func (c *InstanceClient) Event(ctx context.Context, ep domain.Endpoint, id int, env *domain.Envelope) error {
	u := fmt.Sprintf("%s/connections/event/%d", ep.BaseURL(), id)
	return c.http.do(ctx, http.MethodPost, override(u), env, nil)
}

// Cache forwards application state to a remote section.
func (c *InstanceClient) Cache(ctx context.Context, ep domain.Endpoint, id int, state json.RawMessage) error {
	u := fmt.Sprintf("%s/connections/cache/%d", ep.BaseURL(), id)
	return c.http.do(ctx, http.MethodPost, override(u), state, nil)
}

// endpointBody is the host part of a connection endpoint.
type endpointBody struct {
	Host     string `json:"host"`
	Protocol string `json:"protocol,omitempty"`
}

// Attach registers a connection on the instance hosting secondary.
func (c *InstanceClient) Attach(ctx context.Context, primary, secondary domain.Endpoint) error {
	body := struct {
		Primary   endpointBody `json:"primary"`
		Secondary endpointBody `json:"secondary"`
	}{
		Primary:   endpointBody{Host: primary.Host, Protocol: primary.Protocol},
		Secondary: endpointBody{Host: secondary.Host, Protocol: secondary.Protocol},
	}
	return c.http.do(ctx, http.MethodPost, override(connectionURL(primary, secondary)), body, nil)
}

// Detach removes a connection registered by Attach.
func (c *InstanceClient) Detach(ctx context.Context, primary, secondary domain.Endpoint) error {
	return c.http.do(ctx, http.MethodDelete, override(connectionURL(primary, secondary)), nil, nil)
}

// RouteEvent hands an event raised by a replica to the primary's instance.
func (c *InstanceClient) RouteEvent(ctx context.Context, primary, replica domain.Endpoint, id int, env *domain.Envelope) error {
	u := fmt.Sprintf("%s/connections/event/%d", primary.BaseURL(), id)
	return c.http.do(ctx, http.MethodPost, fromReplica(u, replica), env, nil)
}

// RouteCache hands state cached by a replica to the primary's instance.
func (c *InstanceClient) RouteCache(ctx context.Context, primary, replica domain.Endpoint, id int, state json.RawMessage) error {
	u := fmt.Sprintf("%s/connections/cache/%d", primary.BaseURL(), id)
	return c.http.do(ctx, http.MethodPost, fromReplica(u, replica), state, nil)
}

// connectionURL addresses the connection on the instance hosting secondary.
func connectionURL(primary, secondary domain.Endpoint) string {
	return secondary.BaseURL() + "/connection/" + url.PathEscape(primary.Space) + "/" + url.PathEscape(secondary.Space)
}

// fromReplica tags a URL with the replica space that raised the call.
func fromReplica(u string, replica domain.Endpoint) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	q.Set("replicaSpace", replica.Space)
	q.Set("replicaHost", replica.Host)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func sectionURL(ep domain.Endpoint, id int) string {
	return fmt.Sprintf("%s/sections/%d", ep.BaseURL(), id)
}

// override tags a URL as issued by a primary instance.
func override(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	q.Set("override", "true")
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
