package catalog

import (
	"fmt"
	"os"

	"github.com/contentpilot/reddit-autopost/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog is the static registry of candidate communities. It is
// read-only after construction and safe to share across concurrent runs.
type Catalog struct {
	communities []models.CommunityProfile
	byName      map[string]int
}

// New builds a catalog from the given profiles, preserving insertion
// order. Duplicate names are rejected.
func New(profiles []models.CommunityProfile) (*Catalog, error) {
	c := &Catalog{
		communities: make([]models.CommunityProfile, 0, len(profiles)),
		byName:      make(map[string]int, len(profiles)),
	}
	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("community with empty name")
		}
		if _, exists := c.byName[p.Name]; exists {
			return nil, fmt.Errorf("duplicate community %q", p.Name)
		}
		c.byName[p.Name] = len(c.communities)
		c.communities = append(c.communities, p)
	}
	return c, nil
}

// LoadFile reads community profiles from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var file struct {
		Communities []models.CommunityProfile `yaml:"communities"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(file.Communities) == 0 {
		return nil, fmt.Errorf("catalog %s defines no communities", path)
	}

	return New(file.Communities)
}

// Communities returns all entries in insertion order. Callers must not
// mutate the returned slice.
func (c *Catalog) Communities() []models.CommunityProfile {
	return c.communities
}

// Get looks a community up by name.
func (c *Catalog) Get(name string) (*models.CommunityProfile, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return &c.communities[idx], true
}

// Position returns the insertion index of a community, used as the final
// ordering tie-break.
func (c *Catalog) Position(name string) int {
	if idx, ok := c.byName[name]; ok {
		return idx
	}
	return len(c.communities)
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.communities)
}
