// Package domain defines the core domain models for OVE core.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// App is the content application bound to a section.
type App struct {
	// URL is the application server base URL.
	URL string `json:"url"`

	// State is an inline state object posted to the instance on creation.
	State json.RawMessage `json:"state,omitempty"`

	// States describes named/cached states for the instance.
	States *AppStates `json:"states,omitempty"`

	// Opacity is forwarded untouched to the rendering clients.
	Opacity *float64 `json:"opacity,omitempty"`
}

// AppStates groups the state options of an application binding.
type AppStates struct {
	// Load is either a named state (JSON string) or an inline state object.
	Load json.RawMessage `json:"load,omitempty"`

	// Cache holds named states to publish on the application server.
	Cache map[string]json.RawMessage `json:"cache,omitempty"`
}

// Validate checks the binding carries a usable application url.
func (a *App) Validate() error {
	if a == nil {
		return nil
	}
	if strings.TrimSpace(a.URL) == "" {
		return ErrInvalidApp.WithDetails("app.url is required")
	}
	if len(a.State) > 0 && !isJSONObject(a.State) {
		return ErrInvalidApp.WithDetails("app.state must be an object")
	}
	return nil
}

// BaseURL returns the url without a trailing slash.
func (a *App) BaseURL() string {
	return strings.TrimRight(a.URL, "/")
}

// InlineState returns the state object to post to a new instance, if any.
func (a *App) InlineState() json.RawMessage {
	if a == nil {
		return nil
	}
	if isJSONObject(a.State) {
		return a.State
	}
	if a.States != nil && isJSONObject(a.States.Load) {
		return a.States.Load
	}
	return nil
}

// Clone returns a deep copy of the binding.
func (a *App) Clone() *App {
	if a == nil {
		return nil
	}
	out := &App{URL: a.URL}
	if a.State != nil {
		out.State = append(json.RawMessage(nil), a.State...)
	}
	if a.Opacity != nil {
		v := *a.Opacity
		out.Opacity = &v
	}
	if a.States != nil {
		out.States = &AppStates{}
		if a.States.Load != nil {
			out.States.Load = append(json.RawMessage(nil), a.States.Load...)
		}
		if a.States.Cache != nil {
			out.States.Cache = make(map[string]json.RawMessage, len(a.States.Cache))
			for k, v := range a.States.Cache {
				out.States.Cache[k] = append(json.RawMessage(nil), v...)
			}
		}
	}
	return out
}

// Section is a content rectangle placed over the client regions of a space.
//
// The id is the section's slot in the registry arena; it is never reused.
type Section struct {
	ID    int    `json:"id"`
	Space string `json:"space"`
	Rect

	// Spaces maps a space name to the per-client crop of this section.
	// Exactly one key exists, equal to Space.
	Spaces map[string][]ClientLayout `json:"spaces"`

	App *App `json:"app,omitempty"`
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	out := &Section{
		ID:    s.ID,
		Space: s.Space,
		Rect:  s.Rect,
		App:   s.App.Clone(),
	}
	if s.Spaces != nil {
		out.Spaces = make(map[string][]ClientLayout, len(s.Spaces))
		for name, layouts := range s.Spaces {
			cp := make([]ClientLayout, len(layouts))
			copy(cp, layouts)
			out.Spaces[name] = cp
		}
	}
	return out
}

// Group is a numbered list of section ids used for bulk operations.
type Group struct {
	ID       int   `json:"id"`
	Sections []int `json:"sections"`
}

// Contains reports whether the group references the section id.
func (g *Group) Contains(id int) bool {
	for _, sid := range g.Sections {
		if sid == id {
			return true
		}
	}
	return false
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
