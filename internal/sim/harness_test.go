package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/config"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/scripting"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// In-memory store fakes shared by the worker tests.

type memPlayers struct {
	mu      sync.Mutex
	players map[int64]*world.Player
	flushed int
}

func newMemPlayers(list ...*world.Player) *memPlayers {
	m := &memPlayers{players: make(map[int64]*world.Player)}
	for _, p := range list {
		cp := *p
		m.players[p.UserID] = &cp
	}
	return m
}

func (m *memPlayers) Load(_ context.Context, id int64) (*world.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, errors.New("no such player")
	}
	cp := *p
	return &cp, nil
}

func (m *memPlayers) Save(_ context.Context, p *world.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.players[p.UserID] = &cp
	return nil
}

func (m *memPlayers) FlushPositions(_ context.Context, updates []cache.PositionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		if p, ok := m.players[u.UserID]; ok {
			p.X, p.Y = u.X, u.Y
			p.LastActive = u.LastActive
		}
	}
	m.flushed += len(updates)
	return nil
}

type memTerritories struct {
	mu          sync.Mutex
	territories map[int64]*world.Territory
	bosses      map[int64]*world.Boss
	saves       int
}

func newMemTerritories(terrs []*world.Territory, bosses []*world.Boss) *memTerritories {
	m := &memTerritories{
		territories: make(map[int64]*world.Territory),
		bosses:      make(map[int64]*world.Boss),
	}
	for _, t := range terrs {
		cp := *t
		m.territories[t.ID] = &cp
	}
	for _, b := range bosses {
		cp := *b
		m.bosses[b.ID] = &cp
	}
	return m
}

func (m *memTerritories) LoadTerritories(context.Context) ([]*world.Territory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*world.Territory, 0, len(m.territories))
	for _, t := range m.territories {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTerritories) SaveTerritory(_ context.Context, t *world.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.territories[t.ID] = &cp
	m.saves++
	return nil
}

func (m *memTerritories) LoadBosses(context.Context) ([]*world.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*world.Boss, 0, len(m.bosses))
	for _, b := range m.bosses {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTerritories) SaveBoss(_ context.Context, b *world.Boss) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bosses[b.ID] = &cp
	return nil
}

type memWalkers struct {
	mu      sync.Mutex
	walkers map[int64]*world.Walker
}

func newMemWalkers() *memWalkers {
	return &memWalkers{walkers: make(map[int64]*world.Walker)}
}

func (m *memWalkers) Upsert(_ context.Context, w *world.Walker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.walkers[w.UserID] = &cp
	return nil
}

func (m *memWalkers) SaveProgress(_ context.Context, userID int64, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.walkers[userID]; ok {
		w.Index = index
	}
	return nil
}

func (m *memWalkers) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.walkers, userID)
	return nil
}

func (m *memWalkers) LoadAll(context.Context) ([]*world.Walker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*world.Walker, 0, len(m.walkers))
	for _, w := range m.walkers {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

type memSpawns struct {
	mu     sync.Mutex
	spawns map[string]*world.Spawn
}

func newMemSpawns() *memSpawns {
	return &memSpawns{spawns: make(map[string]*world.Spawn)}
}

func (m *memSpawns) Insert(_ context.Context, s *world.Spawn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.spawns[s.ID] = &cp
	return nil
}

func (m *memSpawns) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spawns, id)
	return nil
}

func (m *memSpawns) LoadAll(context.Context) ([]*world.Spawn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*world.Spawn, 0, len(m.spawns))
	for _, s := range m.spawns {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func testLayer(players *memPlayers, terrs *memTerritories) *cache.Layer {
	return cache.NewLayer(cache.NewStore(), players, terrs, config.CacheConfig{
		PlayerTTL: time.Minute, TerritoryTTL: time.Minute,
		EquipmentTTL: time.Minute, SpellTTL: time.Minute,
	}, zap.NewNop())
}

func testScripting(t *testing.T) *scripting.Engine {
	t.Helper()
	eng, err := scripting.NewEngine("testdata/no-such-dir", zap.NewNop())
	if err != nil {
		t.Fatalf("scripting engine: %v", err)
	}
	return eng
}

// collect buffers every event of one type emitted on the bus. The
// bus is synchronous, so reads are safe once Run returns.
func collect[T any](bus *event.Bus) *[]T {
	var out []T
	event.Subscribe(bus, func(ev T) {
		out = append(out, ev)
	})
	return &out
}
