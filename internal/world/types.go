package world

import (
	"time"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
)

// Player is the volatile projection of an online character: the fields
// tickers mutate every second. The canonical row lives in Postgres;
// this copy is flushed back on the write-behind interval.
type Player struct {
	UserID     int64
	Name       string
	Realm      string
	X, Y       float64
	Health     int
	MaxHealth  int
	Mana       int
	MaxMana    int
	Level      int
	XP         int64
	WalkSpeed  float64 // derived from equipment; stale until invalidated
	LastActive time.Time
}

// ClampHealth bounds Health to [0, MaxHealth] and reports whether the
// value changed.
func (p *Player) ClampHealth(delta int) bool {
	next := p.Health + delta
	if next > p.MaxHealth {
		next = p.MaxHealth
	}
	if next < 0 {
		next = 0
	}
	if next == p.Health {
		return false
	}
	p.Health = next
	return true
}

// ClampMana bounds Mana to [0, MaxMana] and reports whether the value
// changed.
func (p *Player) ClampMana(delta int) bool {
	next := p.Mana + delta
	if next > p.MaxMana {
		next = p.MaxMana
	}
	if next < 0 {
		next = 0
	}
	if next == p.Mana {
		return false
	}
	p.Mana = next
	return true
}

// Territory is a capturable fort/keep snapshot.
type Territory struct {
	ID             int64
	Name           string
	OwnerRealm     string
	Health         int
	MaxHealth      int
	Contested      bool
	DestroyedUntil time.Time // zero when standing
}

// Destroyed reports whether the territory is currently down and
// waiting on its rebuild timer.
func (t *Territory) Destroyed(now time.Time) bool {
	return t.Health <= 0 || now.Before(t.DestroyedUntil)
}

// Boss is a world superboss snapshot.
type Boss struct {
	ID        int64
	Name      string
	Health    int
	MaxHealth int
	Dead      bool
	RespawnAt time.Time
}

// Walker is one user's active 2D movement job. At most one exists per
// user; a new move request replaces it.
type Walker struct {
	UserID    int64
	Realm     string
	Route     []data.Point
	Index     int
	StartedAt time.Time
	UpdatedAt time.Time
}

// Done reports whether the walker has reached its final waypoint.
func (w *Walker) Done() bool { return w.Index >= len(w.Route)-1 }

// ActiveSpell is one running timed effect on a player.
type ActiveSpell struct {
	SpellID   int32
	Key       string
	Effect    string // data.EffectHeal / EffectMana / EffectDamage
	Remaining int
	Duration  int
	Amount    int // per-tick magnitude, resolved at cast time
	Speed     bool
}

// Cooldown blocks recasting a spell key until ExpiresAt.
type Cooldown struct {
	Key       string
	ExpiresAt time.Time
	Total     time.Duration
	Icon      string
}

// Expired reports whether the cooldown has elapsed.
func (c Cooldown) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }

// Spawn claim lifecycle. A spawn is claimable only while unclaimed;
// the unclaimed->claimed transition is the arbitration point.
const (
	SpawnUnclaimed = "unclaimed"
	SpawnClaimed   = "claimed"
)

// Spawn is one live collectable node in the world.
type Spawn struct {
	ID        string // uuid
	Key       string // fixed-spawn key or rule name
	Rule      string // owning region rule, empty for fixed points
	X, Y      float64
	ItemID    int32
	Table     string
	State     string
	ClaimedBy int64
	SpawnedAt time.Time
}
