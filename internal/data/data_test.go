package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRegionTable(t *testing.T) {
	path := writeYAML(t, "regions.yaml", `
regions:
  - name: aggersborg
    type: warzone
    walkable: true
    polygon:
      - {x: 0, y: 0}
      - {x: 100, y: 0}
      - {x: 100, y: 100}
  - name: montsognir
    type: realm
    realm: alsius
    walkable: true
    polygon:
      - {x: 200, y: 0}
      - {x: 300, y: 0}
      - {x: 300, y: 100}
      - {x: 200, y: 100}
`)
	tbl, err := LoadRegionTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("expected 2 regions, got %d", tbl.Count())
	}
	r := tbl.Get("montsognir")
	if r == nil || r.Realm != "alsius" || len(r.Polygon) != 4 {
		t.Fatalf("unexpected region %+v", r)
	}
	if tbl.Get("nowhere") != nil {
		t.Fatal("unknown region must be nil")
	}
}

func TestLoadRegionTableRejectsDegeneratePolygon(t *testing.T) {
	path := writeYAML(t, "regions.yaml", `
regions:
  - name: sliver
    type: realm
    walkable: true
    polygon:
      - {x: 0, y: 0}
      - {x: 1, y: 1}
`)
	if _, err := LoadRegionTable(path); err == nil {
		t.Fatal("two-point polygon must be rejected")
	}
}

func TestLoadPathTable(t *testing.T) {
	path := writeYAML(t, "paths.yaml", `
paths:
  - name: coastal-road
    loop: true
    points:
      - {x: 0, y: 0}
      - {x: 50, y: 10}
      - {x: 100, y: 0}
`)
	tbl, err := LoadPathTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Count() != 1 {
		t.Fatalf("expected 1 path, got %d", tbl.Count())
	}
	p := tbl.All()[0]
	if !p.Loop || len(p.Points) != 3 {
		t.Fatalf("unexpected path %+v", p)
	}
}

func TestLoadPathTableRejectsSinglePoint(t *testing.T) {
	path := writeYAML(t, "paths.yaml", `
paths:
  - name: stub
    points:
      - {x: 0, y: 0}
`)
	if _, err := LoadPathTable(path); err == nil {
		t.Fatal("single-point path must be rejected")
	}
}

func TestLoadLootTables(t *testing.T) {
	path := writeYAML(t, "loot.yaml", `
tables:
  - name: herbs
    mode: weighted
    entries:
      - {item_id: 101, min: 1, max: 3, weight: 10}
      - {item_id: 102, min: 1, max: 1, weight: 1}
  - name: chest
    mode: multi_drop
    picks: 3
    entries:
      - {item_id: 201, min: 1, max: 1, weight: 1}
  - name: boss
    mode: independent
    entries:
      - {item_id: 301, min: 1, max: 1, chance: 500000}
`)
	tables, err := LoadLootTables(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl := tables.Get("chest"); tbl == nil || tbl.Picks != 3 {
		t.Fatalf("unexpected chest table %+v", tables.Get("chest"))
	}
	if tables.Get("missing") != nil {
		t.Fatal("unknown table must be nil")
	}
}

func TestLoadLootTablesRejectsBadMode(t *testing.T) {
	path := writeYAML(t, "loot.yaml", `
tables:
  - name: broken
    mode: lottery
    entries:
      - {item_id: 1, min: 1, max: 1, weight: 1}
`)
	if _, err := LoadLootTables(path); err == nil {
		t.Fatal("unknown loot mode must be rejected")
	}
}

func TestLoadLootTablesRejectsMultiDropWithoutPicks(t *testing.T) {
	path := writeYAML(t, "loot.yaml", `
tables:
  - name: chest
    mode: multi_drop
    entries:
      - {item_id: 1, min: 1, max: 1, weight: 1}
`)
	if _, err := LoadLootTables(path); err == nil {
		t.Fatal("multi_drop without picks must be rejected")
	}
}

func TestLoadSpawnTable(t *testing.T) {
	path := writeYAML(t, "spawns.yaml", `
fixed:
  - key: herb-patch
    x: 10
    y: 20
    item_id: 101
    respawn_sec: 300
rules:
  - name: syrtis-herbs
    regions: [eferias]
    max_spawns: 3
    table: herbs
    points:
      - {x: 1, y: 1}
      - {x: 2, y: 2}
      - {x: 3, y: 3}
      - {x: 4, y: 4}
`)
	tbl, err := LoadSpawnTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tbl.Fixed()) != 1 || len(tbl.Rules()) != 1 {
		t.Fatalf("expected 1 fixed + 1 rule, got %d/%d", len(tbl.Fixed()), len(tbl.Rules()))
	}
	if got := tbl.Fixed()[0].Respawn(); got.Seconds() != 300 {
		t.Fatalf("expected 300s respawn, got %v", got)
	}
}

func TestLoadSpawnTableRejectsPointlessRule(t *testing.T) {
	path := writeYAML(t, "spawns.yaml", `
rules:
  - name: empty
    max_spawns: 2
    table: herbs
    points: []
`)
	if _, err := LoadSpawnTable(path); err == nil {
		t.Fatal("rule without placement points must be rejected")
	}
}

func TestLoadSpellTable(t *testing.T) {
	path := writeYAML(t, "spells.yaml", `
spells:
  - id: 1
    key: regenerate
    effect: heal
    duration: 10
    magnitude: 5
    max_stacks: 1
    cooldown_sec: 60
    icon: regen.png
  - id: 2
    key: haste
    effect: mana
    duration: 30
    magnitude: 2
    max_stacks: 1
    speed: true
`)
	tbl, err := LoadSpellTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("expected 2 spells, got %d", tbl.Count())
	}
	s := tbl.Get("regenerate")
	if s == nil || s.Effect != EffectHeal || s.Cooldown().Seconds() != 60 {
		t.Fatalf("unexpected spell %+v", s)
	}
	if !tbl.Get("haste").Speed {
		t.Fatal("haste should carry the speed flag")
	}
}

func TestLoadSpellTableRejectsUnknownEffect(t *testing.T) {
	path := writeYAML(t, "spells.yaml", `
spells:
  - id: 1
    key: weird
    effect: teleport
    duration: 1
    magnitude: 1
    max_stacks: 1
`)
	if _, err := LoadSpellTable(path); err == nil {
		t.Fatal("unknown spell effect must be rejected")
	}
}
