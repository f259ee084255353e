// Package domain defines the core domain models for OVE core.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
)

// CoreAppID is the appId used for section lifecycle traffic.
const CoreAppID = "core"

// Action is a section lifecycle action carried by core messages.
type Action string

// Section lifecycle actions.
const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionRead    Action = "READ"
	ActionRefresh Action = "REFRESH"
)

// Kind is the decoded variant of an Envelope.
type Kind int

// Envelope variants, discriminated by which field is present.
const (
	KindUnknown Kind = iota
	KindRegistration
	KindSync
	KindSyncResults
	KindClockDiff
	KindCore
	KindApp
)

// String returns the variant name used in logs.
func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindSync:
		return "sync"
	case KindSyncResults:
		return "syncResults"
	case KindClockDiff:
		return "clockDiff"
	case KindCore:
		return "core"
	case KindApp:
		return "app"
	default:
		return "unknown"
	}
}

// SectionRef is a section id as carried on the wire. Browsers send it as
// either a JSON string or a number; it is normalised to its decimal string.
type SectionRef string

// UnmarshalJSON implements json.Unmarshaler.
func (r *SectionRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = SectionRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*r = SectionRef(n.String())
	return nil
}

// Int returns the numeric section id.
func (r SectionRef) Int() (int, bool) {
	id, err := strconv.Atoi(string(r))
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// RefOf converts a section id to its wire form.
func RefOf(id int) SectionRef {
	return SectionRef(strconv.Itoa(id))
}

// Registration binds a socket to either a space client or a section.
type Registration struct {
	Space     string     `json:"space,omitempty"`
	Client    *int       `json:"client,omitempty"`
	SectionID SectionRef `json:"sectionId,omitempty"`
}

// IsSection reports whether this is a section-scoped registration.
func (r *Registration) IsSection() bool {
	return r != nil && r.SectionID != ""
}

// IsSpace reports whether this is a space/controller registration.
func (r *Registration) IsSpace() bool {
	return r != nil && r.SectionID == "" && r.Space != "" && r.Client != nil
}

// SyncFrame is one step of the clock handshake.
type SyncFrame struct {
	ID         string `json:"id"`
	T1         *int64 `json:"t1,omitempty"`
	T2         *int64 `json:"t2,omitempty"`
	ServerDiff int64  `json:"serverDiff"`
}

// CoreMessage is the payload of a section lifecycle envelope.
type CoreMessage struct {
	Action Action                    `json:"action"`
	ID     *int                      `json:"id,omitempty"`
	Spaces map[string][]ClientLayout `json:"spaces,omitempty"`
	App    *App                      `json:"app,omitempty"`
}

// Envelope is the single WebSocket wire message.
type Envelope struct {
	AppID        string           `json:"appId"`
	SectionID    SectionRef       `json:"sectionId,omitempty"`
	Message      json.RawMessage  `json:"message,omitempty"`
	Registration *Registration    `json:"registration,omitempty"`
	Sync         *SyncFrame       `json:"sync,omitempty"`
	ClockDiff    map[string]int64 `json:"clockDiff,omitempty"`
	ClockBase    *int64           `json:"clockBaseline,omitempty"`
	SyncResults  []int64          `json:"syncResults,omitempty"`
	ForwardedBy  []string         `json:"forwardedBy,omitempty"`
}

// ErrEmptyEnvelope is returned when a frame decodes to no known variant.
var ErrEmptyEnvelope = errors.New("domain: envelope carries no message")

// DecodeEnvelope parses a wire frame and classifies it.
func DecodeEnvelope(data []byte) (*Envelope, Kind, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, KindUnknown, err
	}
	kind := env.Kind()
	if kind == KindUnknown {
		return nil, KindUnknown, ErrEmptyEnvelope
	}
	return &env, kind, nil
}

// Kind classifies the envelope by the presence of its variant fields.
func (e *Envelope) Kind() Kind {
	switch {
	case e.Registration != nil:
		return KindRegistration
	case e.Sync != nil:
		return KindSync
	case e.SyncResults != nil:
		return KindSyncResults
	case e.ClockDiff != nil:
		return KindClockDiff
	case len(e.Message) == 0:
		return KindUnknown
	case e.AppID == CoreAppID:
		return KindCore
	default:
		return KindApp
	}
}

// Core decodes the core lifecycle payload.
func (e *Envelope) Core() (*CoreMessage, error) {
	var msg CoreMessage
	if err := json.Unmarshal(e.Message, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ForwardedByContains reports whether an instance id already relayed this envelope.
func (e *Envelope) ForwardedByContains(uuid string) bool {
	return slices.Contains(e.ForwardedBy, uuid)
}

// Forwarded returns a copy of the envelope with uuid appended to ForwardedBy.
func (e *Envelope) Forwarded(uuid string) *Envelope {
	out := *e
	out.ForwardedBy = append(append([]string(nil), e.ForwardedBy...), uuid)
	return &out
}

// NewCoreEnvelope builds a core lifecycle envelope.
func NewCoreEnvelope(msg *CoreMessage) (*Envelope, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Envelope{AppID: CoreAppID, Message: raw}, nil
}
