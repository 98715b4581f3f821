package sim

import (
	"context"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
)

// Authority is the external source of territory-ownership truth
// (the war-status service). The sync ticker only reads from it.
type Authority interface {
	Ownership(ctx context.Context) (map[int64]string, error)
}

// TerritorySync reconciles cached/persisted territory owners against
// the external authority. Idempotent: runs with no upstream change
// produce no writes and no events.
type TerritorySync struct {
	cache     *cache.Layer
	authority Authority
	bus       *event.Bus
	log       *zap.Logger
}

func NewTerritorySync(c *cache.Layer, authority Authority, bus *event.Bus, log *zap.Logger) *TerritorySync {
	return &TerritorySync{cache: c, authority: authority, bus: bus, log: log}
}

func (t *TerritorySync) Name() string { return "territory-sync" }

func (t *TerritorySync) Run(ctx context.Context) error {
	truth, err := t.authority.Ownership(ctx)
	if err != nil {
		return err
	}
	terrs, err := t.cache.Territories(ctx)
	if err != nil {
		return err
	}
	for _, terr := range terrs {
		owner, ok := truth[terr.ID]
		if !ok || owner == terr.OwnerRealm {
			continue
		}
		// Ownership mismatch is a capture: write through, clear the
		// contested flag and tell the world.
		captured := *terr
		captured.OwnerRealm = owner
		captured.Contested = false
		if err := t.cache.CaptureTerritory(ctx, &captured); err != nil {
			t.log.Error("capture write", zap.Int64("territory", terr.ID), zap.Error(err))
			continue
		}
		event.Emit(t.bus, CaptureEvent{
			TerritoryID: terr.ID,
			Name:        terr.Name,
			OldOwner:    terr.OwnerRealm,
			NewOwner:    owner,
		})
		t.log.Info("territory captured",
			zap.String("territory", terr.Name),
			zap.String("owner", owner))
	}
	return nil
}
