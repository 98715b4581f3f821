// Package fpmove is the server-authoritative first-person movement
// engine. The client runs the exact same Apply function for local
// prediction; both sides must stay bit-for-bit identical or predicted
// and authoritative positions drift apart.
package fpmove

import "math"

// Input is one sequenced client input sample.
type Input struct {
	Seq    uint64  `json:"seq"`
	DX     float64 `json:"dx"`
	DZ     float64 `json:"dz"`
	Sprint bool    `json:"sprint"`
	Yaw    float64 `json:"yaw"` // view yaw in radians
}

// Position is a 3D-mode ground position (the Y axis of the 2D world
// maps onto Z here).
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Config holds the movement constants. There is exactly one
// authoritative set; the client receives it on mode enter and must
// not use different constants for prediction.
type Config struct {
	BaseSpeed  float64
	SprintMult float64
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// Apply advances a position by one input sample: input vector scaled
// by speed, rotated into world space by view yaw, clamped to world
// bounds. An input whose resulting cell is denied leaves the position
// unchanged — the same rule on both sides keeps prediction exact.
func Apply(pos Position, in Input, cfg Config, allowed func(x, z float64) bool) Position {
	speed := cfg.BaseSpeed
	if in.Sprint {
		speed *= cfg.SprintMult
	}
	sin, cos := math.Sincos(in.Yaw)
	wx := (in.DX*cos - in.DZ*sin) * speed
	wz := (in.DX*sin + in.DZ*cos) * speed

	next := Position{
		X: clamp(pos.X+wx, cfg.MinX, cfg.MaxX),
		Z: clamp(pos.Z+wz, cfg.MinZ, cfg.MaxZ),
	}
	if allowed != nil && !allowed(next.X, next.Z) {
		return pos
	}
	return next
}

// Replay applies buffered not-yet-acknowledged inputs on top of an
// authoritative position. This is the client's reconciliation step;
// it lives next to Apply so both halves of the protocol share one
// movement function.
func Replay(authoritative Position, buffered []Input, cfg Config, allowed func(x, z float64) bool) Position {
	pos := authoritative
	for _, in := range buffered {
		pos = Apply(pos, in, cfg, allowed)
	}
	return pos
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
