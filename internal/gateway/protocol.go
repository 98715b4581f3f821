package gateway

import "encoding/json"

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type moveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type castRequest struct {
	SpellKey string `json:"spell_key"`
}

type spawnRequest struct {
	SpawnID string `json:"spawn_id"`
}

type fpInputRequest struct {
	Seq    uint64  `json:"seq"`
	DX     float64 `json:"dx"`
	DZ     float64 `json:"dz"`
	Sprint bool    `json:"sprint"`
	Yaw    float64 `json:"yaw"`
}

// result is the synchronous reply to an inbound request. Code carries
// the domain conflict ("no_route", "region_denied", "on_cooldown",
// "spawn_claimed", ...) when OK is false.
type result struct {
	Op   string `json:"op"`
	OK   bool   `json:"ok"`
	Code string `json:"code,omitempty"`
}

type joinReply struct {
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	Realm     string  `json:"realm"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"max_health"`
	Mana      int     `json:"mana"`
	MaxMana   int     `json:"max_mana"`
	Level     int     `json:"level"`
}

type fpEnterReply struct {
	SessionID  string  `json:"session_id"`
	X          float64 `json:"x"`
	Z          float64 `json:"z"`
	BaseSpeed  float64 `json:"base_speed"`
	SprintMult float64 `json:"sprint_mult"`
}

type fpExitReply struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type collectReply struct {
	SpawnID string `json:"spawn_id"`
	Drops   []drop `json:"drops"`
}

type drop struct {
	ItemID int32 `json:"item_id"`
	Count  int   `json:"count"`
}
