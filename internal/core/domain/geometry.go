// Package domain defines the core domain models for OVE core.
package domain

import (
	"bytes"
	"encoding/json"
)

// Point is an x/y pair, used for crop offsets and translations.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in a space's coordinate system.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// IsDegenerate reports whether the rectangle has no visible area.
func (r Rect) IsDegenerate() bool {
	return r.W <= 0 || r.H <= 0
}

// ClientRegion is one physical display's rectangle within a space.
// Its index in the space's client list is the stable client id.
type ClientRegion = Rect

// Size is the bounding width and height of a space.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ClientLayout is the part of a section rendered by a single client.
//
// An empty layout marshals as {} and marks a client the section does not
// overlap, so that the array position still equals the client id.
type ClientLayout struct {
	Rect
	Offset Point
	Empty  bool
}

type clientLayoutJSON struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Offset Point   `json:"offset"`
}

// MarshalJSON implements json.Marshaler.
func (l ClientLayout) MarshalJSON() ([]byte, error) {
	if l.Empty {
		return []byte("{}"), nil
	}
	return json.Marshal(clientLayoutJSON{X: l.X, Y: l.Y, W: l.W, H: l.H, Offset: l.Offset})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *ClientLayout) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		*l = ClientLayout{Empty: true}
		return nil
	}
	var raw clientLayoutJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = ClientLayout{
		Rect:   Rect{X: raw.X, Y: raw.Y, W: raw.W, H: raw.H},
		Offset: raw.Offset,
	}
	return nil
}

// Visible reports whether the layout gives its client something to draw.
func (l ClientLayout) Visible() bool {
	return !l.Empty && !l.IsDegenerate()
}
