package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/scripting"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// SpellTicker applies timed buff/debuff effects once per tick and
// expires spells whose remaining duration runs out. Casting is
// validated here too, against cooldowns and stack limits, so an
// over-stacked cast never reaches the tick loop.
type SpellTicker struct {
	cache  *cache.Layer
	spells *data.SpellTable
	lua    *scripting.Engine
	bus    *event.Bus
	log    *zap.Logger
}

func NewSpellTicker(c *cache.Layer, spells *data.SpellTable, lua *scripting.Engine, bus *event.Bus, log *zap.Logger) *SpellTicker {
	return &SpellTicker{cache: c, spells: spells, lua: lua, bus: bus, log: log}
}

// Cast validates and starts a timed spell on the caster.
func (t *SpellTicker) Cast(ctx context.Context, userID int64, spellKey string) error {
	def := t.spells.Get(spellKey)
	if def == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSpell, spellKey)
	}

	now := time.Now()
	if cd, ok := t.cache.Cooldown(userID, spellKey); ok && !cd.Expired(now) {
		return ErrOnCooldown
	}
	active := t.cache.Spells(userID)
	stacks := 0
	for _, s := range active {
		if s.Key == spellKey {
			stacks++
		}
	}
	if stacks >= def.MaxStacks {
		return ErrMaxStacks
	}

	p, err := t.cache.Player(ctx, userID)
	if err != nil {
		return err
	}
	spell := &world.ActiveSpell{
		SpellID:   def.ID,
		Key:       def.Key,
		Effect:    def.Effect,
		Remaining: def.Duration,
		Duration:  def.Duration,
		Amount:    t.lua.CalcSpellMagnitude(def.Magnitude, p.Level),
		Speed:     def.Speed,
	}
	t.cache.SetSpells(userID, append(active, spell))
	if def.CooldownSec > 0 {
		t.cache.SetCooldown(userID, world.Cooldown{
			Key:       def.Key,
			ExpiresAt: now.Add(def.Cooldown()),
			Total:     def.Cooldown(),
			Icon:      def.Icon,
		})
		event.Emit(t.bus, CooldownEvent{
			UserID: userID, Key: def.Key, Seconds: def.CooldownSec, Icon: def.Icon,
		})
	}
	return nil
}

func (t *SpellTicker) Name() string { return "spells" }

// Run processes every user holding at least one active spell.
// Per-user failures are isolated.
func (t *SpellTicker) Run(ctx context.Context) error {
	for _, userID := range t.cache.SpellUsers() {
		if err := t.tickUser(ctx, userID); err != nil {
			t.log.Error("spell tick", zap.Int64("user", userID), zap.Error(err))
		}
	}
	return nil
}

func (t *SpellTicker) tickUser(ctx context.Context, userID int64) error {
	active := t.cache.Spells(userID)
	if len(active) == 0 {
		return nil
	}

	var (
		remaining    []*world.ActiveSpell
		ticks        []SpellTickEvent
		expired      []SpellExpiredEvent
		speedExpired bool
	)
	err := t.cache.UpdatePlayer(ctx, userID, func(p *world.Player) {
		for _, s := range active {
			switch s.Effect {
			case data.EffectHeal:
				p.ClampHealth(s.Amount)
			case data.EffectMana:
				p.ClampMana(s.Amount)
			case data.EffectDamage:
				p.ClampHealth(-s.Amount)
			}
			s.Remaining--
			ticks = append(ticks, SpellTickEvent{
				UserID: userID, Key: s.Key, Effect: s.Effect,
				Amount: s.Amount, Remaining: s.Remaining,
			})
			if s.Remaining <= 0 {
				expired = append(expired, SpellExpiredEvent{UserID: userID, Key: s.Key})
				if s.Speed {
					speedExpired = true
				}
				continue
			}
			remaining = append(remaining, s)
		}
	})
	if err != nil {
		return err
	}

	t.cache.SetSpells(userID, remaining)
	if speedExpired {
		// A walk-speed buff ended: the derived-stat aggregate is
		// stale now, drop it.
		t.cache.InvalidateEquipment(userID)
	}
	for _, ev := range ticks {
		event.Emit(t.bus, ev)
	}
	for _, ev := range expired {
		event.Emit(t.bus, ev)
	}
	return nil
}
