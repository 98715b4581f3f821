package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// SpawnStore persists live collectables across restarts.
type SpawnStore interface {
	Insert(ctx context.Context, s *world.Spawn) error
	Remove(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]*world.Spawn, error)
}

// Drop is one resolved loot grant.
type Drop struct {
	ItemID int32
	Count  int
}

// Spawner manages world loot nodes: placement from fixed points and
// region-bound pools, claim arbitration, loot resolution and respawn
// scheduling. The unclaimed->claimed transition is the one real CAS
// in the whole sim: a lost update here is a double-claimed item.
type Spawner struct {
	table          *data.SpawnTable
	loot           *data.LootTables
	store          SpawnStore
	bus            *event.Bus
	log            *zap.Logger
	defaultRespawn time.Duration

	mu        sync.Mutex
	spawns    map[string]*world.Spawn // by spawn ID
	respawnAt map[string]time.Time    // by fixed key / rule point key
}

func NewSpawner(table *data.SpawnTable, loot *data.LootTables, store SpawnStore, bus *event.Bus, defaultRespawn time.Duration, log *zap.Logger) *Spawner {
	return &Spawner{
		table:          table,
		loot:           loot,
		store:          store,
		bus:            bus,
		log:            log,
		defaultRespawn: defaultRespawn,
		spawns:         make(map[string]*world.Spawn),
		respawnAt:      make(map[string]time.Time),
	}
}

// Restore reloads persisted spawns at boot.
func (s *Spawner) Restore(ctx context.Context) error {
	list, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range list {
		s.spawns[sp.ID] = sp
	}
	return nil
}

func (s *Spawner) Name() string { return "spawner" }

// Run is the periodic spawn check: restore elapsed respawn timers and
// top up every region rule to its configured count.
func (s *Spawner) Run(ctx context.Context) error {
	now := time.Now()
	for _, fixed := range s.table.Fixed() {
		if err := s.checkFixed(ctx, fixed, now); err != nil {
			s.log.Error("fixed spawn", zap.String("key", fixed.Key), zap.Error(err))
		}
	}
	for _, rule := range s.table.Rules() {
		if err := s.topUpRule(ctx, rule, now); err != nil {
			s.log.Error("rule top-up", zap.String("rule", rule.Name), zap.Error(err))
		}
	}
	return nil
}

func (s *Spawner) checkFixed(ctx context.Context, fixed data.FixedSpawn, now time.Time) error {
	s.mu.Lock()
	for _, sp := range s.spawns {
		if sp.Key == fixed.Key {
			s.mu.Unlock()
			return nil // already up
		}
	}
	if until, ok := s.respawnAt[fixed.Key]; ok && now.Before(until) {
		s.mu.Unlock()
		return nil // timer still running
	}
	delete(s.respawnAt, fixed.Key)
	s.mu.Unlock()

	itemID := fixed.ItemID
	if itemID == 0 {
		tbl := s.loot.Get(fixed.Table)
		if tbl == nil || len(tbl.Entries) == 0 {
			return nil
		}
		itemID = s.weightedPick(tbl).ItemID
	}
	return s.place(ctx, fixed.Key, "", fixed.X, fixed.Y, itemID)
}

func (s *Spawner) topUpRule(ctx context.Context, rule data.SpawnRule, now time.Time) error {
	tbl := s.loot.Get(rule.Table)
	if tbl == nil || len(tbl.Entries) == 0 {
		return nil
	}

	s.mu.Lock()
	live := 0
	present := make(map[int32]struct{})
	occupied := make(map[data.Point]struct{})
	for _, sp := range s.spawns {
		if sp.Rule == rule.Name {
			live++
			present[sp.ItemID] = struct{}{}
			occupied[data.Point{X: sp.X, Y: sp.Y}] = struct{}{}
		}
	}
	missing := rule.MaxSpawns - live
	s.mu.Unlock()

	for i := 0; i < missing; i++ {
		// Items already present under this rule are excluded so a
		// top-up brings variety, not duplicates.
		entry, ok := s.pickExcluding(tbl, present)
		if !ok {
			return nil
		}
		pt, ok := s.pickPoint(rule.Points, occupied, now, rule.Name)
		if !ok {
			return nil
		}
		if err := s.place(ctx, rule.Name, rule.Name, pt.X, pt.Y, entry.ItemID); err != nil {
			return err
		}
		present[entry.ItemID] = struct{}{}
		occupied[pt] = struct{}{}
	}
	return nil
}

func (s *Spawner) pickPoint(points []data.Point, occupied map[data.Point]struct{}, now time.Time, ruleName string) (data.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	free := make([]data.Point, 0, len(points))
	for _, pt := range points {
		if _, taken := occupied[pt]; taken {
			continue
		}
		if until, ok := s.respawnAt[pointKey(ruleName, pt)]; ok && now.Before(until) {
			continue
		}
		free = append(free, pt)
	}
	if len(free) == 0 {
		return data.Point{}, false
	}
	return free[rand.Intn(len(free))], true
}

func (s *Spawner) place(ctx context.Context, key, rule string, x, y float64, itemID int32) error {
	sp := &world.Spawn{
		ID:        uuid.NewString(),
		Key:       key,
		Rule:      rule,
		X:         x,
		Y:         y,
		ItemID:    itemID,
		State:     world.SpawnUnclaimed,
		SpawnedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, sp); err != nil {
		return err
	}
	s.mu.Lock()
	s.spawns[sp.ID] = sp
	s.mu.Unlock()
	event.Emit(s.bus, SpawnEvent{
		SpawnID: sp.ID, Key: key, X: x, Y: y, ItemID: itemID, State: "spawned",
	})
	return nil
}

// Claim atomically transitions a spawn from unclaimed to claimed by
// this user. A concurrent second claimer gets ErrSpawnClaimed; the
// winner is unaffected.
func (s *Spawner) Claim(userID int64, spawnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spawns[spawnID]
	if !ok {
		return ErrNoSpawn
	}
	if sp.State != world.SpawnUnclaimed {
		return ErrSpawnClaimed
	}
	sp.State = world.SpawnClaimed
	sp.ClaimedBy = userID
	event.Emit(s.bus, SpawnEvent{
		SpawnID: sp.ID, Key: sp.Key, X: sp.X, Y: sp.Y, ItemID: sp.ItemID,
		State: "claimed", UserID: userID,
	})
	return nil
}

// Collect resolves loot for a spawn the user has claimed, removes it
// and arms the respawn timer.
func (s *Spawner) Collect(ctx context.Context, userID int64, spawnID string) ([]Drop, error) {
	s.mu.Lock()
	sp, ok := s.spawns[spawnID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoSpawn
	}
	if sp.State != world.SpawnClaimed || sp.ClaimedBy != userID {
		s.mu.Unlock()
		return nil, ErrNotClaimant
	}
	delete(s.spawns, spawnID)
	s.armRespawnLocked(sp)
	s.mu.Unlock()

	if err := s.store.Remove(ctx, spawnID); err != nil {
		s.log.Error("remove spawn", zap.String("spawn", spawnID), zap.Error(err))
	}

	var drops []Drop
	if tbl := s.loot.Get(s.tableFor(sp)); tbl != nil {
		drops = s.Resolve(tbl)
	} else {
		drops = []Drop{{ItemID: sp.ItemID, Count: 1}}
	}
	event.Emit(s.bus, SpawnEvent{
		SpawnID: sp.ID, Key: sp.Key, X: sp.X, Y: sp.Y, ItemID: sp.ItemID,
		State: "collected", UserID: userID,
	})
	return drops, nil
}

// Release returns a claimed spawn to the unclaimed pool (cancelled or
// failed collection).
func (s *Spawner) Release(userID int64, spawnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spawns[spawnID]
	if !ok {
		return ErrNoSpawn
	}
	if sp.State != world.SpawnClaimed || sp.ClaimedBy != userID {
		return ErrNotClaimant
	}
	sp.State = world.SpawnUnclaimed
	sp.ClaimedBy = 0
	event.Emit(s.bus, SpawnEvent{
		SpawnID: sp.ID, Key: sp.Key, X: sp.X, Y: sp.Y, ItemID: sp.ItemID,
		State: "released", UserID: userID,
	})
	return nil
}

// Live returns a snapshot of current spawns (gateway world sync).
func (s *Spawner) Live() []world.Spawn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]world.Spawn, 0, len(s.spawns))
	for _, sp := range s.spawns {
		out = append(out, *sp)
	}
	return out
}

func (s *Spawner) tableFor(sp *world.Spawn) string {
	if sp.Rule != "" {
		for _, r := range s.table.Rules() {
			if r.Name == sp.Rule {
				return r.Table
			}
		}
		return ""
	}
	for _, f := range s.table.Fixed() {
		if f.Key == sp.Key {
			return f.Table
		}
	}
	return ""
}

func (s *Spawner) armRespawnLocked(sp *world.Spawn) {
	delay := s.defaultRespawn
	key := sp.Key
	if sp.Rule != "" {
		for _, r := range s.table.Rules() {
			if r.Name == sp.Rule && r.RespawnSec > 0 {
				delay = r.Respawn()
			}
		}
		key = pointKey(sp.Rule, data.Point{X: sp.X, Y: sp.Y})
	} else {
		for _, f := range s.table.Fixed() {
			if f.Key == sp.Key && f.RespawnSec > 0 {
				delay = f.Respawn()
			}
		}
	}
	s.respawnAt[key] = time.Now().Add(delay)
}

func pointKey(rule string, pt data.Point) string {
	return rule + ":" + pt.String()
}

// ── Loot resolution ────────────────────────────────────────────────

// Resolve rolls a loot table according to its mode.
func (s *Spawner) Resolve(tbl *data.LootTable) []Drop {
	switch tbl.Mode {
	case data.LootWeighted:
		if len(tbl.Entries) == 0 {
			return nil
		}
		return []Drop{s.roll(s.weightedPick(tbl))}
	case data.LootMultiDrop:
		if len(tbl.Entries) == 0 {
			return nil
		}
		drops := make([]Drop, 0, tbl.Picks)
		for i := 0; i < tbl.Picks; i++ {
			drops = append(drops, s.roll(s.weightedPick(tbl)))
		}
		return drops
	case data.LootIndependent:
		var drops []Drop
		for i := range tbl.Entries {
			e := &tbl.Entries[i]
			if rand.Intn(1_000_000) < e.Chance {
				drops = append(drops, s.roll(e))
			}
		}
		return drops
	}
	return nil
}

func (s *Spawner) roll(e *data.LootEntry) Drop {
	count := e.Min
	if e.Max > e.Min {
		count = e.Min + rand.Intn(e.Max-e.Min+1)
	}
	if count < 1 {
		count = 1
	}
	return Drop{ItemID: e.ItemID, Count: count}
}

func (s *Spawner) weightedPick(tbl *data.LootTable) *data.LootEntry {
	total := 0
	for i := range tbl.Entries {
		w := tbl.Entries[i].Weight
		if w < 1 {
			w = 1
		}
		total += w
	}
	n := rand.Intn(total)
	for i := range tbl.Entries {
		w := tbl.Entries[i].Weight
		if w < 1 {
			w = 1
		}
		if n < w {
			return &tbl.Entries[i]
		}
		n -= w
	}
	return &tbl.Entries[len(tbl.Entries)-1]
}

func (s *Spawner) pickExcluding(tbl *data.LootTable, exclude map[int32]struct{}) (*data.LootEntry, bool) {
	candidates := make([]*data.LootEntry, 0, len(tbl.Entries))
	total := 0
	for i := range tbl.Entries {
		e := &tbl.Entries[i]
		if _, dup := exclude[e.ItemID]; dup {
			continue
		}
		candidates = append(candidates, e)
		w := e.Weight
		if w < 1 {
			w = 1
		}
		total += w
	}
	if len(candidates) == 0 {
		return nil, false
	}
	n := rand.Intn(total)
	for _, e := range candidates {
		w := e.Weight
		if w < 1 {
			w = 1
		}
		if n < w {
			return e, true
		}
		n -= w
	}
	return candidates[len(candidates)-1], true
}
