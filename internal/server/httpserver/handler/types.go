package handler

import (
	"bytes"
	"encoding/json"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// SectionBody is the request body for POST /section and POST /sections/{id}.
type SectionBody struct {
	Space *string         `json:"space,omitempty"`
	X     *float64        `json:"x,omitempty"`
	Y     *float64        `json:"y,omitempty"`
	W     *float64        `json:"w,omitempty"`
	H     *float64        `json:"h,omitempty"`
	App   json.RawMessage `json:"app,omitempty"`
}

// app decodes the binding. set reports whether the field was present;
// an explicit null yields a nil binding.
func (b *SectionBody) app() (app *domain.App, set bool, err error) {
	if len(b.App) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(b.App), []byte("null")) {
		return nil, true, nil
	}
	if err := json.Unmarshal(b.App, &app); err != nil {
		return nil, true, domain.ErrInvalidApp.WithDetails(err.Error())
	}
	return app, true, nil
}

// TransformBody is the request body for POST /sections/transform.
type TransformBody struct {
	Scale     *domain.Point `json:"scale,omitempty"`
	Translate *domain.Point `json:"translate,omitempty"`
}

// MoveBody is the request body for POST /sections/moveTo.
type MoveBody struct {
	Space string `json:"space"`
}

// ConnectionBody optionally locates the spaces of POST /connection.
// Missing hosts default to this instance.
type ConnectionBody struct {
	Primary   *EndpointBody `json:"primary,omitempty"`
	Secondary *EndpointBody `json:"secondary,omitempty"`
}

// EndpointBody is the host part of a connection endpoint.
type EndpointBody struct {
	Host     string `json:"host"`
	Protocol string `json:"protocol,omitempty"`
}

func (b *EndpointBody) endpoint(space string) domain.Endpoint {
	ep := domain.Endpoint{Space: space}
	if b != nil {
		ep.Host = b.Host
		ep.Protocol = b.Protocol
	}
	return ep
}

// IDResponse is returned by single-section and group mutations.
type IDResponse struct {
	ID int `json:"id"`
}

// IDsResponse is returned by bulk mutations.
type IDsResponse struct {
	IDs []int `json:"ids"`
}
