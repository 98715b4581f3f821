package sim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/config"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/scripting"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// RegenTicker restores health (and mana, for players) for every
// online player, every contested-but-standing territory and every
// living boss. Entities already at maximum are skipped so a tick
// with nothing to do produces no writes.
type RegenTicker struct {
	cache *cache.Layer
	lua   *scripting.Engine
	bus   *event.Bus
	rates config.RegenConfig
	log   *zap.Logger
}

func NewRegenTicker(c *cache.Layer, lua *scripting.Engine, bus *event.Bus, rates config.RegenConfig, log *zap.Logger) *RegenTicker {
	return &RegenTicker{cache: c, lua: lua, bus: bus, rates: rates, log: log}
}

func (t *RegenTicker) Name() string { return "regen" }

func (t *RegenTicker) Run(ctx context.Context) error {
	for _, id := range t.cache.OnlineIDs() {
		if err := t.regenPlayer(ctx, id); err != nil {
			t.log.Error("player regen", zap.Int64("user", id), zap.Error(err))
		}
	}
	if err := t.regenTerritories(ctx); err != nil {
		t.log.Error("territory regen", zap.Error(err))
	}
	if err := t.regenBosses(ctx); err != nil {
		t.log.Error("boss regen", zap.Error(err))
	}
	return nil
}

func (t *RegenTicker) regenPlayer(ctx context.Context, userID int64) error {
	cur, err := t.cache.Player(ctx, userID)
	if err != nil {
		return err
	}
	if cur.Health >= cur.MaxHealth && cur.Mana >= cur.MaxMana {
		return nil // already full, skip the write entirely
	}
	var (
		changed bool
		ev      RegenEvent
	)
	err = t.cache.UpdatePlayer(ctx, userID, func(p *world.Player) {
		hGain := p.ClampHealth(t.lua.CalcHealthRegen(p.Level, p.MaxHealth))
		mGain := p.ClampMana(t.lua.CalcManaRegen(p.Level, p.MaxMana))
		changed = hGain || mGain
		ev = RegenEvent{Kind: "player", ID: userID, Health: p.Health, Mana: p.Mana}
	})
	if err != nil {
		return err
	}
	if changed {
		event.Emit(t.bus, ev)
	}
	return nil
}

func (t *RegenTicker) regenTerritories(ctx context.Context) error {
	terrs, err := t.cache.Territories(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, terr := range terrs {
		if !terr.Contested || terr.Destroyed(now) || terr.Health >= terr.MaxHealth {
			continue
		}
		id := terr.ID
		var ev RegenEvent
		err := t.cache.UpdateTerritory(ctx, id, func(tt *world.Territory) {
			tt.Health += t.rates.TerritoryHealth
			if tt.Health > tt.MaxHealth {
				tt.Health = tt.MaxHealth
			}
			ev = RegenEvent{Kind: "territory", ID: id, Health: tt.Health}
		})
		if err != nil {
			t.log.Error("territory regen write", zap.Int64("territory", id), zap.Error(err))
			continue
		}
		event.Emit(t.bus, ev)
	}
	return nil
}

func (t *RegenTicker) regenBosses(ctx context.Context) error {
	bosses, err := t.cache.Bosses(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, b := range bosses {
		if b.Dead {
			continue
		}
		if b.Health <= 0 {
			// Dead bosses move to respawn bookkeeping, they never
			// regenerate back up from zero.
			id := b.ID
			err := t.cache.UpdateBoss(ctx, id, func(bb *world.Boss) {
				bb.Dead = true
				if bb.RespawnAt.IsZero() {
					bb.RespawnAt = now.Add(time.Hour)
				}
			})
			if err != nil {
				t.log.Error("boss death write", zap.Int64("boss", id), zap.Error(err))
			}
			continue
		}
		if b.Health >= b.MaxHealth {
			continue
		}
		id := b.ID
		var ev RegenEvent
		err := t.cache.UpdateBoss(ctx, id, func(bb *world.Boss) {
			gain := bb.MaxHealth * t.rates.BossHealthPct / 100
			if gain < 1 {
				gain = 1
			}
			bb.Health += gain
			if bb.Health > bb.MaxHealth {
				bb.Health = bb.MaxHealth
			}
			ev = RegenEvent{Kind: "boss", ID: id, Health: bb.Health}
		})
		if err != nil {
			t.log.Error("boss regen write", zap.Int64("boss", id), zap.Error(err))
			continue
		}
		event.Emit(t.bus, ev)
	}
	return nil
}
