package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Spell effect kinds applied once per spell tick.
const (
	EffectHeal   = "heal"
	EffectMana   = "mana"
	EffectDamage = "damage"
)

// Spell is the static definition of a timed buff/debuff. Duration is
// in spell ticks; Magnitude is the base per-tick amount, scaled by the
// formula scripts at cast time.
type Spell struct {
	ID          int32  `yaml:"id"`
	Key         string `yaml:"key"`
	Effect      string `yaml:"effect"`
	Duration    int    `yaml:"duration"`
	Magnitude   int    `yaml:"magnitude"`
	MaxStacks   int    `yaml:"max_stacks"`
	CooldownSec int    `yaml:"cooldown_sec"`
	Icon        string `yaml:"icon"`
	Speed       bool   `yaml:"speed"` // affects derived walk speed
}

// Cooldown returns the recast delay for the spell.
func (s *Spell) Cooldown() time.Duration { return time.Duration(s.CooldownSec) * time.Second }

type spellFile struct {
	Spells []Spell `yaml:"spells"`
}

// SpellTable holds spell definitions indexed by key.
type SpellTable struct {
	spells map[string]*Spell
}

// Get returns the spell for a key, or nil if none defined.
func (t *SpellTable) Get(key string) *Spell {
	return t.spells[key]
}

func (t *SpellTable) Count() int { return len(t.spells) }

// LoadSpellTable loads spell definitions from a YAML file.
func LoadSpellTable(path string) (*SpellTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spells: %w", err)
	}
	var f spellFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spells: %w", err)
	}
	spells := make(map[string]*Spell, len(f.Spells))
	for i := range f.Spells {
		s := &f.Spells[i]
		switch s.Effect {
		case EffectHeal, EffectMana, EffectDamage:
		default:
			return nil, fmt.Errorf("spell %q: unknown effect %q", s.Key, s.Effect)
		}
		if s.MaxStacks < 1 {
			s.MaxStacks = 1
		}
		spells[s.Key] = s
	}
	return &SpellTable{spells: spells}, nil
}

// NewSpellTable builds a table from memory (tests).
func NewSpellTable(list []Spell) *SpellTable {
	spells := make(map[string]*Spell, len(list))
	for i := range list {
		if list[i].MaxStacks < 1 {
			list[i].MaxStacks = 1
		}
		spells[list[i].Key] = &list[i]
	}
	return &SpellTable{spells: spells}
}
