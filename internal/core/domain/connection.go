// Package domain defines the core domain models for OVE core.
package domain

import "strings"

// Endpoint locates a space on an OVE core instance.
type Endpoint struct {
	Space    string `json:"space"`
	Host     string `json:"host"`
	Protocol string `json:"protocol"`
}

// BaseURL returns the instance base URL, e.g. http://host:8080.
func (e Endpoint) BaseURL() string {
	protocol := e.Protocol
	if protocol == "" {
		protocol = "http"
	}
	return protocol + "://" + strings.TrimRight(e.Host, "/")
}

// Same reports whether both endpoints address the same space on the same host.
func (e Endpoint) Same(other Endpoint) bool {
	return e.Space == other.Space && strings.EqualFold(e.Host, other.Host)
}

// SectionLink maps a primary section to one of its replicas.
type SectionLink struct {
	Primary   int      `json:"primary"`
	Secondary int      `json:"secondary"`
	Link      Endpoint `json:"link"`
}

// Connection is a replication link from a primary space to one or more
// secondary spaces.
type Connection struct {
	Primary       Endpoint      `json:"primary"`
	Secondary     []Endpoint    `json:"secondary"`
	SectionMap    []SectionLink `json:"sectionMap"`
	IsInitialized bool          `json:"isInitialized"`
}

// Clone returns a deep copy of the connection.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	out := &Connection{
		Primary:       c.Primary,
		Secondary:     append([]Endpoint(nil), c.Secondary...),
		SectionMap:    append([]SectionLink(nil), c.SectionMap...),
		IsInitialized: c.IsInitialized,
	}
	return out
}

// SecondaryFor returns the secondary endpoint for a space name.
func (c *Connection) SecondaryFor(space string) (Endpoint, bool) {
	for _, s := range c.Secondary {
		if s.Space == space {
			return s, true
		}
	}
	return Endpoint{}, false
}

// HasSpace reports whether the space is the primary or one of the secondaries.
func (c *Connection) HasSpace(space string) bool {
	if c.Primary.Space == space {
		return true
	}
	_, ok := c.SecondaryFor(space)
	return ok
}

// LinksForPrimary returns every replica link of a primary section.
func (c *Connection) LinksForPrimary(id int) []SectionLink {
	var out []SectionLink
	for _, l := range c.SectionMap {
		if l.Primary == id {
			out = append(out, l)
		}
	}
	return out
}

// RemoveLinks drops every link matching the predicate and returns them.
func (c *Connection) RemoveLinks(match func(SectionLink) bool) []SectionLink {
	var removed []SectionLink
	kept := c.SectionMap[:0]
	for _, l := range c.SectionMap {
		if match(l) {
			removed = append(removed, l)
			continue
		}
		kept = append(kept, l)
	}
	c.SectionMap = kept
	return removed
}

// RemoveSecondary drops a secondary endpoint by space name.
func (c *Connection) RemoveSecondary(space string) bool {
	for i, s := range c.Secondary {
		if s.Space == space {
			c.Secondary = append(c.Secondary[:i], c.Secondary[i+1:]...)
			return true
		}
	}
	return false
}
