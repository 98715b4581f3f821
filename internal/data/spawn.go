package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FixedSpawn places one collectable at a fixed world point. ItemID 0
// means the item is drawn from Table at spawn time.
type FixedSpawn struct {
	Key        string  `yaml:"key"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	ItemID     int32   `yaml:"item_id"`
	Table      string  `yaml:"table"`
	RespawnSec int     `yaml:"respawn_sec"`
}

// Respawn returns the respawn delay, zero meaning "use the default".
func (s FixedSpawn) Respawn() time.Duration { return time.Duration(s.RespawnSec) * time.Second }

// SpawnRule keeps up to MaxSpawns collectables alive across a set of
// regions, drawn from a loot table. Points are the candidate placement
// locations inside those regions.
type SpawnRule struct {
	Name       string   `yaml:"name"`
	Regions    []string `yaml:"regions"`
	MaxSpawns  int      `yaml:"max_spawns"`
	Table      string   `yaml:"table"`
	RespawnSec int      `yaml:"respawn_sec"`
	Points     []Point  `yaml:"points"`
}

// Respawn returns the respawn delay, zero meaning "use the default".
func (r SpawnRule) Respawn() time.Duration { return time.Duration(r.RespawnSec) * time.Second }

type spawnFile struct {
	Fixed []FixedSpawn `yaml:"fixed"`
	Rules []SpawnRule  `yaml:"rules"`
}

// SpawnTable holds collectable placement configuration.
type SpawnTable struct {
	fixed []FixedSpawn
	rules []SpawnRule
}

func (t *SpawnTable) Fixed() []FixedSpawn { return t.fixed }
func (t *SpawnTable) Rules() []SpawnRule  { return t.rules }
func (t *SpawnTable) Count() int          { return len(t.fixed) + len(t.rules) }

// LoadSpawnTable loads collectable spawn configuration from a YAML file.
func LoadSpawnTable(path string) (*SpawnTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawns: %w", err)
	}
	var f spawnFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawns: %w", err)
	}
	for _, r := range f.Rules {
		if r.MaxSpawns < 1 {
			return nil, fmt.Errorf("spawn rule %q: max_spawns must be >= 1", r.Name)
		}
		if len(r.Points) == 0 {
			return nil, fmt.Errorf("spawn rule %q: needs placement points", r.Name)
		}
	}
	return &SpawnTable{fixed: f.Fixed, rules: f.Rules}, nil
}

// NewSpawnTable builds a table from memory (tests).
func NewSpawnTable(fixed []FixedSpawn, rules []SpawnRule) *SpawnTable {
	return &SpawnTable{fixed: fixed, rules: rules}
}
