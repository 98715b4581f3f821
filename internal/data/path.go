package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WaypointPath is one named ordered chain of navigation points. Loop
// paths additionally connect the last point back to the first.
type WaypointPath struct {
	Name   string  `yaml:"name"`
	Loop   bool    `yaml:"loop"`
	Points []Point `yaml:"points"`
}

type pathFile struct {
	Paths []WaypointPath `yaml:"paths"`
}

// PathTable holds all waypoint paths used to build the navigation graph.
type PathTable struct {
	paths []WaypointPath
}

func (t *PathTable) All() []WaypointPath { return t.paths }

func (t *PathTable) Count() int { return len(t.paths) }

// LoadPathTable loads waypoint paths from a YAML file.
func LoadPathTable(path string) (*PathTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}
	var f pathFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse paths: %w", err)
	}
	for i := range f.Paths {
		if len(f.Paths[i].Points) < 2 {
			return nil, fmt.Errorf("path %q: needs at least 2 points", f.Paths[i].Name)
		}
	}
	return &PathTable{paths: f.Paths}, nil
}

// NewPathTable builds a table from in-memory paths (tests, editor reload).
func NewPathTable(paths []WaypointPath) *PathTable {
	return &PathTable{paths: paths}
}
