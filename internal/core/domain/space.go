// Package domain defines the core domain models for OVE core.
package domain

// Space is a named, static grid of physical display regions.
// Spaces are loaded from configuration and never mutated at runtime.
type Space struct {
	Name    string
	Clients []ClientRegion
}

// Catalog is the immutable set of spaces known to an instance.
type Catalog map[string]*Space

// NewCatalog builds a catalog from a name to client-region map.
func NewCatalog(layouts map[string][]ClientRegion) Catalog {
	c := make(Catalog, len(layouts))
	for name, clients := range layouts {
		regions := make([]ClientRegion, len(clients))
		copy(regions, clients)
		c[name] = &Space{Name: name, Clients: regions}
	}
	return c
}

// Get returns the named space.
func (c Catalog) Get(name string) (*Space, bool) {
	s, ok := c[name]
	return s, ok
}

// Layouts returns a copy of every space's client regions keyed by name.
func (c Catalog) Layouts() map[string][]ClientRegion {
	out := make(map[string][]ClientRegion, len(c))
	for name, s := range c {
		regions := make([]ClientRegion, len(s.Clients))
		copy(regions, s.Clients)
		out[name] = regions
	}
	return out
}
