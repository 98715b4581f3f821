package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loot resolution modes. Mode selects how many entries a single
// resolution yields and how each entry is rolled.
const (
	LootWeighted    = "weighted"    // one weighted pick from the pool
	LootMultiDrop   = "multi_drop"  // Picks independent weighted picks, duplicates allowed
	LootIndependent = "independent" // every entry rolls its own inclusion chance
)

// LootEntry is one possible item in a loot table. Weight drives the
// weighted and multi_drop modes; Chance (out of 1,000,000) drives the
// independent mode.
type LootEntry struct {
	ItemID int32 `yaml:"item_id"`
	Min    int   `yaml:"min"`
	Max    int   `yaml:"max"`
	Weight int   `yaml:"weight"`
	Chance int   `yaml:"chance"`
}

// LootTable is one named drop pool.
type LootTable struct {
	Name    string      `yaml:"name"`
	Mode    string      `yaml:"mode"`
	Picks   int         `yaml:"picks"` // multi_drop only
	Entries []LootEntry `yaml:"entries"`
}

type lootFile struct {
	Tables []LootTable `yaml:"tables"`
}

// LootTables holds all drop pools indexed by name.
type LootTables struct {
	tables map[string]*LootTable
}

// Get returns the named table, or nil if none defined.
func (t *LootTables) Get(name string) *LootTable {
	return t.tables[name]
}

func (t *LootTables) Count() int { return len(t.tables) }

// LoadLootTables loads drop pools from a YAML file.
func LoadLootTables(path string) (*LootTables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot tables: %w", err)
	}
	var f lootFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot tables: %w", err)
	}
	tables := make(map[string]*LootTable, len(f.Tables))
	for i := range f.Tables {
		tbl := &f.Tables[i]
		switch tbl.Mode {
		case LootWeighted, LootIndependent:
		case LootMultiDrop:
			if tbl.Picks < 1 {
				return nil, fmt.Errorf("loot table %q: multi_drop needs picks >= 1", tbl.Name)
			}
		default:
			return nil, fmt.Errorf("loot table %q: unknown mode %q", tbl.Name, tbl.Mode)
		}
		tables[tbl.Name] = tbl
	}
	return &LootTables{tables: tables}, nil
}

// NewLootTables builds tables from memory (tests).
func NewLootTables(list []LootTable) *LootTables {
	tables := make(map[string]*LootTable, len(list))
	for i := range list {
		tables[list[i].Name] = &list[i]
	}
	return &LootTables{tables: tables}
}
