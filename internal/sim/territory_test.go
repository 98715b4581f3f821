package sim

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

type staticAuthority map[int64]string

func (a staticAuthority) Ownership(context.Context) (map[int64]string, error) {
	return a, nil
}

func TestTerritorySyncCaptures(t *testing.T) {
	terrs := newMemTerritories([]*world.Territory{
		{ID: 1, Name: "fort-imperia", OwnerRealm: "ignis", Contested: true, Health: 500, MaxHealth: 1000},
		{ID: 2, Name: "fort-samal", OwnerRealm: "syrtis", Health: 800, MaxHealth: 1000},
	}, nil)
	layer := testLayer(newMemPlayers(), terrs)
	bus := event.NewBus()
	captures := collect[CaptureEvent](bus)
	ctx := context.Background()

	if err := layer.LoadWorld(ctx); err != nil {
		t.Fatalf("load world: %v", err)
	}

	sync := NewTerritorySync(layer, staticAuthority{1: "alsius", 2: "syrtis"}, bus, zap.NewNop())
	if err := sync.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(*captures) != 1 {
		t.Fatalf("expected one capture, got %+v", *captures)
	}
	ev := (*captures)[0]
	if ev.TerritoryID != 1 || ev.OldOwner != "ignis" || ev.NewOwner != "alsius" {
		t.Fatalf("unexpected capture event %+v", ev)
	}

	// The captured fort reads back with its new owner and the
	// contested flag cleared.
	got, err := layer.Territory(ctx, 1)
	if err != nil {
		t.Fatalf("territory: %v", err)
	}
	if got.OwnerRealm != "alsius" || got.Contested {
		t.Fatalf("capture not applied: %+v", got)
	}
}

func TestTerritorySyncIdempotent(t *testing.T) {
	terrs := newMemTerritories([]*world.Territory{
		{ID: 1, Name: "fort-imperia", OwnerRealm: "ignis", Health: 500, MaxHealth: 1000},
	}, nil)
	layer := testLayer(newMemPlayers(), terrs)
	bus := event.NewBus()
	captures := collect[CaptureEvent](bus)
	ctx := context.Background()

	if err := layer.LoadWorld(ctx); err != nil {
		t.Fatalf("load world: %v", err)
	}

	sync := NewTerritorySync(layer, staticAuthority{1: "alsius"}, bus, zap.NewNop())
	for i := 0; i < 3; i++ {
		if err := sync.Run(ctx); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(*captures) != 1 {
		t.Fatalf("repeat runs with unchanged truth must not re-capture, got %d events", len(*captures))
	}

	terrs.mu.Lock()
	saves := terrs.saves
	terrs.mu.Unlock()
	if saves != 1 {
		t.Fatalf("expected exactly one write-through save, got %d", saves)
	}
}

func TestTerritorySyncUnknownIDIgnored(t *testing.T) {
	terrs := newMemTerritories([]*world.Territory{
		{ID: 1, Name: "fort-imperia", OwnerRealm: "ignis", Health: 500, MaxHealth: 1000},
	}, nil)
	layer := testLayer(newMemPlayers(), terrs)
	bus := event.NewBus()
	captures := collect[CaptureEvent](bus)
	ctx := context.Background()

	if err := layer.LoadWorld(ctx); err != nil {
		t.Fatalf("load world: %v", err)
	}
	sync := NewTerritorySync(layer, staticAuthority{99: "alsius"}, bus, zap.NewNop())
	if err := sync.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(*captures) != 0 {
		t.Fatalf("truth for unknown territories must be ignored, got %+v", *captures)
	}
}
