package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// region is one client rectangle as written in the spaces file.
type region struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// LoadSpaces reads a spaces file mapping space names to their client
// regions. The file may be YAML or JSON.
//
//	LobbyWall:
//	  - {x: 0, y: 0, w: 1920, h: 1080}
//	  - {x: 1920, y: 0, w: 1920, h: 1080}
func LoadSpaces(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spaces file: %w", err)
	}
	return ParseSpaces(data)
}

// ParseSpaces parses the content of a spaces file.
func ParseSpaces(data []byte) (domain.Catalog, error) {
	var raw map[string][]region
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse spaces file: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("spaces file defines no spaces")
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	layouts := make(map[string][]domain.ClientRegion, len(raw))
	for _, name := range names {
		if name == "" {
			return nil, errors.New("spaces file: empty space name")
		}
		regions := raw[name]
		if len(regions) == 0 {
			return nil, fmt.Errorf("space %s has no clients", name)
		}
		out := make([]domain.ClientRegion, len(regions))
		for i, r := range regions {
			if r.W <= 0 || r.H <= 0 {
				return nil, fmt.Errorf("space %s client %d: w and h must be positive", name, i)
			}
			out[i] = domain.ClientRegion{X: r.X, Y: r.Y, W: r.W, H: r.H}
		}
		layouts[name] = out
	}
	return domain.NewCatalog(layouts), nil
}
