package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a 2D world coordinate.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (p Point) String() string { return fmt.Sprintf("%.1f,%.1f", p.X, p.Y) }

// Region is one static zone polygon. Realm is the owning realm name,
// empty for neutral ground. Warzone-type regions are enterable by
// every realm regardless of owner.
type Region struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"` // "warzone", "realm", "dungeon", ...
	Realm    string  `yaml:"realm"`
	Walkable bool    `yaml:"walkable"`
	Polygon  []Point `yaml:"polygon"`
}

type regionFile struct {
	Regions []Region `yaml:"regions"`
}

// RegionTable holds all zone polygons, in file order. Evaluation order
// matters: the first polygon containing a point decides permission.
type RegionTable struct {
	regions []Region
}

func (t *RegionTable) All() []Region { return t.regions }

func (t *RegionTable) Count() int { return len(t.regions) }

// Get returns the named region, or nil.
func (t *RegionTable) Get(name string) *Region {
	for i := range t.regions {
		if t.regions[i].Name == name {
			return &t.regions[i]
		}
	}
	return nil
}

// LoadRegionTable loads zone geometry from a YAML file.
func LoadRegionTable(path string) (*RegionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	var f regionFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	for i := range f.Regions {
		if len(f.Regions[i].Polygon) < 3 {
			return nil, fmt.Errorf("region %q: polygon needs at least 3 points", f.Regions[i].Name)
		}
	}
	return &RegionTable{regions: f.Regions}, nil
}

// NewRegionTable builds a table from in-memory regions (tests, editor reload).
func NewRegionTable(regions []Region) *RegionTable {
	return &RegionTable{regions: regions}
}
