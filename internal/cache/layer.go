package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/config"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// PlayerStore is the database surface the layer reads through to and
// flushes behind to.
type PlayerStore interface {
	Load(ctx context.Context, userID int64) (*world.Player, error)
	Save(ctx context.Context, p *world.Player) error
	FlushPositions(ctx context.Context, updates []PositionUpdate) error
}

// PositionUpdate mirrors persist.PositionUpdate without importing it,
// keeping the layer mockable in tests.
type PositionUpdate struct {
	UserID     int64
	X, Y       float64
	LastActive time.Time
}

// TerritoryStore persists territory and boss snapshots.
type TerritoryStore interface {
	LoadTerritories(ctx context.Context) ([]*world.Territory, error)
	SaveTerritory(ctx context.Context, t *world.Territory) error
	LoadBosses(ctx context.Context) ([]*world.Boss, error)
	SaveBoss(ctx context.Context, b *world.Boss) error
}

// Layer is the read-through/write-behind store every ticker goes
// through. Hot per-second fields (position, health, last-active) are
// mutated on the cached copy and flushed in batches; semi-static
// entities are invalidated synchronously with any direct write.
type Layer struct {
	store  *Store
	player PlayerStore
	terr   TerritoryStore
	cfg    config.CacheConfig
	log    *zap.Logger

	mu              sync.Mutex
	online          []int64
	onlineSet       map[int64]struct{}
	pendingPos      map[int64]PositionUpdate
	dirtyTerritory  map[int64]struct{}
	dirtyBoss       map[int64]struct{}
	territoryIDs    []int64
	bossIDs         []int64
	spells          map[int64][]*world.ActiveSpell
	cooldowns       map[int64]map[string]world.Cooldown
}

func NewLayer(store *Store, player PlayerStore, terr TerritoryStore, cfg config.CacheConfig, log *zap.Logger) *Layer {
	return &Layer{
		store:          store,
		player:         player,
		terr:           terr,
		cfg:            cfg,
		log:            log,
		onlineSet:      make(map[int64]struct{}),
		pendingPos:     make(map[int64]PositionUpdate),
		dirtyTerritory: make(map[int64]struct{}),
		dirtyBoss:      make(map[int64]struct{}),
		spells:         make(map[int64][]*world.ActiveSpell),
		cooldowns:      make(map[int64]map[string]world.Cooldown),
	}
}

func playerKey(id int64) string    { return fmt.Sprintf("player:%d", id) }
func territoryKey(id int64) string { return fmt.Sprintf("territory:%d", id) }
func bossKey(id int64) string      { return fmt.Sprintf("boss:%d", id) }
func equipKey(id int64) string     { return fmt.Sprintf("equip:%d", id) }

// ── Online registry ────────────────────────────────────────────────

// SetOnline registers a user with the tick workers.
func (l *Layer) SetOnline(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.onlineSet[userID]; ok {
		return
	}
	l.onlineSet[userID] = struct{}{}
	l.online = append(l.online, userID)
}

func (l *Layer) SetOffline(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.onlineSet[userID]; !ok {
		return
	}
	delete(l.onlineSet, userID)
	for i, id := range l.online {
		if id == userID {
			l.online = append(l.online[:i], l.online[i+1:]...)
			break
		}
	}
	delete(l.spells, userID)
}

// OnlineIDs returns a copy of the online-player registry.
func (l *Layer) OnlineIDs() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, len(l.online))
	copy(out, l.online)
	return out
}

// ── Players (read-through + write-behind) ──────────────────────────

// Player returns the volatile projection for a user, reading through
// to the database on a miss. An unavailable cache degrades to a
// direct read rather than failing.
func (l *Layer) Player(ctx context.Context, userID int64) (*world.Player, error) {
	key := playerKey(userID)
	if v, ok := l.store.Get(key); ok {
		return v.(*world.Player), nil
	}
	p, err := l.player.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !l.store.Available() {
		l.log.Warn("cache unavailable, direct read", zap.Int64("user", userID))
	}
	l.store.Set(key, p, l.cfg.PlayerTTL)
	return p, nil
}

// UpdatePlayer applies a mutation to the cached projection and buffers
// the position/last-active write-behind entry. Mutations are
// serialized under the layer lock so two tickers cannot interleave on
// one player.
func (l *Layer) UpdatePlayer(ctx context.Context, userID int64, fn func(*world.Player)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.Player(ctx, userID)
	if err != nil {
		return err
	}
	fn(p)
	p.LastActive = time.Now()
	l.store.Set(playerKey(userID), p, l.cfg.PlayerTTL)
	if !l.store.Available() {
		// Write-behind has nowhere to buffer authoritatively; fall
		// back to a synchronous save so the mutation is not lost.
		return l.player.Save(ctx, p)
	}
	l.pendingPos[userID] = PositionUpdate{
		UserID: userID, X: p.X, Y: p.Y, LastActive: p.LastActive,
	}
	return nil
}

func (l *Layer) InvalidatePlayer(userID int64) { l.store.Delete(playerKey(userID)) }

// InvalidateEquipment drops the derived-stat aggregate (walk speed
// etc.) so the next read recomputes it. Called on equipment change
// and on expiry of speed-affecting spells.
func (l *Layer) InvalidateEquipment(userID int64) { l.store.Delete(equipKey(userID)) }

// Equipment returns the cached derived-stat aggregate, computing it
// with calc on a miss.
func (l *Layer) Equipment(userID int64, calc func() float64) float64 {
	key := equipKey(userID)
	if v, ok := l.store.Get(key); ok {
		return v.(float64)
	}
	speed := calc()
	l.store.Set(key, speed, l.cfg.EquipmentTTL)
	return speed
}

// ── Territories & bosses ───────────────────────────────────────────

// LoadWorld primes the territory/boss ID lists at boot.
func (l *Layer) LoadWorld(ctx context.Context) error {
	terrs, err := l.terr.LoadTerritories(ctx)
	if err != nil {
		return fmt.Errorf("load territories: %w", err)
	}
	bosses, err := l.terr.LoadBosses(ctx)
	if err != nil {
		return fmt.Errorf("load bosses: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.territoryIDs = l.territoryIDs[:0]
	for _, t := range terrs {
		l.territoryIDs = append(l.territoryIDs, t.ID)
		l.store.Set(territoryKey(t.ID), t, l.cfg.TerritoryTTL)
	}
	l.bossIDs = l.bossIDs[:0]
	for _, b := range bosses {
		l.bossIDs = append(l.bossIDs, b.ID)
		l.store.Set(bossKey(b.ID), b, l.cfg.TerritoryTTL)
	}
	return nil
}

// Territory reads one territory snapshot through the cache.
func (l *Layer) Territory(ctx context.Context, id int64) (*world.Territory, error) {
	if v, ok := l.store.Get(territoryKey(id)); ok {
		return v.(*world.Territory), nil
	}
	terrs, err := l.terr.LoadTerritories(ctx)
	if err != nil {
		return nil, err
	}
	var found *world.Territory
	for _, t := range terrs {
		l.store.Set(territoryKey(t.ID), t, l.cfg.TerritoryTTL)
		if t.ID == id {
			found = t
		}
	}
	if found == nil {
		return nil, fmt.Errorf("territory %d: not found", id)
	}
	return found, nil
}

// Territories reads every known territory through the cache.
func (l *Layer) Territories(ctx context.Context) ([]*world.Territory, error) {
	l.mu.Lock()
	ids := make([]int64, len(l.territoryIDs))
	copy(ids, l.territoryIDs)
	l.mu.Unlock()
	out := make([]*world.Territory, 0, len(ids))
	for _, id := range ids {
		t, err := l.Territory(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// UpdateTerritory mutates the cached snapshot and marks it dirty for
// the next flush. Hot health writes stay off the database; ownership
// changes instead go through CaptureTerritory.
func (l *Layer) UpdateTerritory(ctx context.Context, id int64, fn func(*world.Territory)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, err := l.Territory(ctx, id)
	if err != nil {
		return err
	}
	fn(t)
	l.store.Set(territoryKey(id), t, l.cfg.TerritoryTTL)
	if !l.store.Available() {
		return l.terr.SaveTerritory(ctx, t)
	}
	l.dirtyTerritory[id] = struct{}{}
	return nil
}

// CaptureTerritory writes an ownership change straight to the
// database and invalidates the snapshot synchronously, so the next
// read is fresh and never stale beyond the write.
func (l *Layer) CaptureTerritory(ctx context.Context, t *world.Territory) error {
	if err := l.terr.SaveTerritory(ctx, t); err != nil {
		return err
	}
	l.store.Delete(territoryKey(t.ID))
	return nil
}

func (l *Layer) Boss(ctx context.Context, id int64) (*world.Boss, error) {
	if v, ok := l.store.Get(bossKey(id)); ok {
		return v.(*world.Boss), nil
	}
	bosses, err := l.terr.LoadBosses(ctx)
	if err != nil {
		return nil, err
	}
	var found *world.Boss
	for _, b := range bosses {
		l.store.Set(bossKey(b.ID), b, l.cfg.TerritoryTTL)
		if b.ID == id {
			found = b
		}
	}
	if found == nil {
		return nil, fmt.Errorf("boss %d: not found", id)
	}
	return found, nil
}

func (l *Layer) Bosses(ctx context.Context) ([]*world.Boss, error) {
	l.mu.Lock()
	ids := make([]int64, len(l.bossIDs))
	copy(ids, l.bossIDs)
	l.mu.Unlock()
	out := make([]*world.Boss, 0, len(ids))
	for _, id := range ids {
		b, err := l.Boss(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (l *Layer) UpdateBoss(ctx context.Context, id int64, fn func(*world.Boss)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.Boss(ctx, id)
	if err != nil {
		return err
	}
	fn(b)
	l.store.Set(bossKey(id), b, l.cfg.TerritoryTTL)
	if !l.store.Available() {
		return l.terr.SaveBoss(ctx, b)
	}
	l.dirtyBoss[id] = struct{}{}
	return nil
}

// ── Spell state ────────────────────────────────────────────────────

// Spells returns the active-spell list for a user. The returned slice
// is the live list; mutate it only through SetSpells.
func (l *Layer) Spells(userID int64) []*world.ActiveSpell {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spells[userID]
}

func (l *Layer) SetSpells(userID int64, list []*world.ActiveSpell) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(list) == 0 {
		delete(l.spells, userID)
		return
	}
	l.spells[userID] = list
}

// SpellUsers returns every user with at least one active spell.
func (l *Layer) SpellUsers() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, 0, len(l.spells))
	for id := range l.spells {
		out = append(out, id)
	}
	return out
}

// Cooldown returns the cooldown entry for a spell key, if present.
func (l *Layer) Cooldown(userID int64, key string) (world.Cooldown, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cd, ok := l.cooldowns[userID][key]
	return cd, ok
}

func (l *Layer) SetCooldown(userID int64, cd world.Cooldown) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.cooldowns[userID]
	if m == nil {
		m = make(map[string]world.Cooldown)
		l.cooldowns[userID] = m
	}
	m[cd.Key] = cd
}

// ── Write-behind flush ─────────────────────────────────────────────

// Flush drains the write-behind buffers: batched position updates
// plus dirty territory/boss snapshots. Failed position batches are
// re-queued for the next flush.
func (l *Layer) Flush(ctx context.Context) error {
	l.mu.Lock()
	pending := l.pendingPos
	l.pendingPos = make(map[int64]PositionUpdate)
	dirtyT := l.dirtyTerritory
	l.dirtyTerritory = make(map[int64]struct{})
	dirtyB := l.dirtyBoss
	l.dirtyBoss = make(map[int64]struct{})
	l.mu.Unlock()

	if len(pending) > 0 {
		updates := make([]PositionUpdate, 0, len(pending))
		for _, u := range pending {
			updates = append(updates, u)
		}
		if err := l.player.FlushPositions(ctx, updates); err != nil {
			l.mu.Lock()
			for id, u := range pending {
				if _, exists := l.pendingPos[id]; !exists {
					l.pendingPos[id] = u
				}
			}
			l.mu.Unlock()
			return fmt.Errorf("flush positions: %w", err)
		}
	}

	for id := range dirtyT {
		t, err := l.Territory(ctx, id)
		if err != nil {
			l.log.Error("flush territory read", zap.Int64("id", id), zap.Error(err))
			continue
		}
		if err := l.terr.SaveTerritory(ctx, t); err != nil {
			l.log.Error("flush territory save", zap.Int64("id", id), zap.Error(err))
		}
	}
	for id := range dirtyB {
		b, err := l.Boss(ctx, id)
		if err != nil {
			l.log.Error("flush boss read", zap.Int64("id", id), zap.Error(err))
			continue
		}
		if err := l.terr.SaveBoss(ctx, b); err != nil {
			l.log.Error("flush boss save", zap.Int64("id", id), zap.Error(err))
		}
	}

	l.store.Sweep()
	return nil
}

// PendingPositions reports the size of the write-behind buffer.
func (l *Layer) PendingPositions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pendingPos)
}
