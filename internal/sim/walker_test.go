package sim

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/geo"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/nav"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

func walkerFixture(t *testing.T) (*WalkerEngine, *event.Bus, *memPlayers, *memWalkers) {
	t.Helper()
	players := newMemPlayers(&world.Player{
		UserID: 1, Realm: "syrtis", X: 0, Y: 0,
		Health: 100, MaxHealth: 100, Mana: 50, MaxMana: 50, WalkSpeed: 1.0,
	})
	layer := testLayer(players, newMemTerritories(nil, nil))

	regions := data.NewRegionTable([]data.Region{{
		Name: "forest", Type: "field", Walkable: true,
		Polygon: []data.Point{{X: -5, Y: -5}, {X: 45, Y: -5}, {X: 45, Y: 45}, {X: -5, Y: 45}},
	}})
	paths := data.NewPathTable([]data.WaypointPath{{
		Name:   "trail",
		Points: []data.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}},
	}})
	graph := nav.Build(paths, 50)

	bus := event.NewBus()
	store := newMemWalkers()
	eng := NewWalkerEngine(layer, geo.NewChecker(regions), graph, store, bus, zap.NewNop())
	return eng, bus, players, store
}

func TestWalkerReachesTarget(t *testing.T) {
	eng, bus, _, store := walkerFixture(t)
	ctx := context.Background()
	steps := collect[StepEvent](bus)
	arrivals := collect[ArriveEvent](bus)

	if err := eng.RequestMove(ctx, 1, 30, 0); err != nil {
		t.Fatalf("request move: %v", err)
	}
	if !eng.Walking(1) {
		t.Fatal("expected active walker after request")
	}

	// Route: 4 path nodes + the literal target, entered at node 0.
	for i := 0; i < 4; i++ {
		if err := eng.Run(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if eng.Walking(1) {
		t.Fatal("walker should be done after traversing the route")
	}
	if len(*arrivals) != 1 || (*arrivals)[0].X != 30 {
		t.Fatalf("expected one arrival at x=30, got %+v", *arrivals)
	}
	if len(*steps) != 3 {
		t.Fatalf("expected 3 intermediate steps, got %d", len(*steps))
	}

	// Arrival deletes the persisted walker row.
	store.mu.Lock()
	n := len(store.walkers)
	store.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected walker row deleted, %d remain", n)
	}
}

func TestWalkerExtraTickIsNoOp(t *testing.T) {
	eng, _, _, _ := walkerFixture(t)
	ctx := context.Background()
	if err := eng.RequestMove(ctx, 1, 30, 0); err != nil {
		t.Fatalf("request move: %v", err)
	}
	for i := 0; i < 6; i++ {
		if err := eng.Run(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if eng.Walking(1) {
		t.Fatal("walker must not linger past its route")
	}
}

func TestWalkerReplaceSemantics(t *testing.T) {
	eng, bus, _, store := walkerFixture(t)
	ctx := context.Background()
	arrivals := collect[ArriveEvent](bus)

	if err := eng.RequestMove(ctx, 1, 30, 0); err != nil {
		t.Fatalf("first move: %v", err)
	}
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	// A new request replaces the walk in place.
	if err := eng.RequestMove(ctx, 1, 10, 0); err != nil {
		t.Fatalf("second move: %v", err)
	}

	for i := 0; i < 6; i++ {
		if err := eng.Run(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if len(*arrivals) != 1 {
		t.Fatalf("expected exactly one arrival, got %d", len(*arrivals))
	}
	if (*arrivals)[0].X != 10 {
		t.Fatalf("arrival should be at the replacing target, got x=%v", (*arrivals)[0].X)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.walkers) != 0 {
		t.Fatal("finished walk must be deleted")
	}
}

func TestWalkerDeniedTarget(t *testing.T) {
	eng, _, _, _ := walkerFixture(t)
	// (1000, 1000) is outside every region polygon.
	err := eng.RequestMove(context.Background(), 1, 1000, 1000)
	if !errors.Is(err, geo.ErrRegionDenied) {
		t.Fatalf("expected ErrRegionDenied, got %v", err)
	}
	if eng.Walking(1) {
		t.Fatal("denied request must not start a walker")
	}
}

func TestWalkerCancel(t *testing.T) {
	eng, _, _, store := walkerFixture(t)
	ctx := context.Background()
	if err := eng.RequestMove(ctx, 1, 30, 0); err != nil {
		t.Fatalf("request move: %v", err)
	}
	eng.Cancel(ctx, 1)
	if eng.Walking(1) {
		t.Fatal("cancel should drop the walker")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.walkers) != 0 {
		t.Fatal("cancel should delete the persisted row")
	}
}

func TestWalkerRestore(t *testing.T) {
	eng, _, _, store := walkerFixture(t)
	ctx := context.Background()
	store.Upsert(ctx, &world.Walker{
		UserID: 1, Realm: "syrtis",
		Route: []data.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Index: 0,
	})
	if err := eng.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !eng.Walking(1) {
		t.Fatal("restored walker should be active")
	}
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if eng.Walking(1) {
		t.Fatal("restored two-point walk finishes in one tick")
	}
}
