package sim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/geo"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/nav"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// WalkerStore is the persistence surface for crash-recoverable walks.
type WalkerStore interface {
	Upsert(ctx context.Context, w *world.Walker) error
	SaveProgress(ctx context.Context, userID int64, index int) error
	Delete(ctx context.Context, userID int64) error
	LoadAll(ctx context.Context) ([]*world.Walker, error)
}

// WalkerEngine owns every active 2D movement job. A move request
// pathfinds, permission-checks and upserts the user's walker; the
// tick advances each walker one waypoint and persists progress.
type WalkerEngine struct {
	cache *cache.Layer
	geo   *geo.Checker
	graph *nav.Graph
	store WalkerStore
	bus   *event.Bus
	log   *zap.Logger

	mu      sync.Mutex
	walkers map[int64]*world.Walker
}

func NewWalkerEngine(c *cache.Layer, g *geo.Checker, graph *nav.Graph, store WalkerStore, bus *event.Bus, log *zap.Logger) *WalkerEngine {
	return &WalkerEngine{
		cache:   c,
		geo:     g,
		graph:   graph,
		store:   store,
		bus:     bus,
		log:     log,
		walkers: make(map[int64]*world.Walker),
	}
}

// Restore reloads in-flight walkers at boot so walks resume after a
// crash.
func (e *WalkerEngine) Restore(ctx context.Context) error {
	list, err := e.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range list {
		e.walkers[w.UserID] = w
	}
	return nil
}

// RequestMove validates a point-and-click move and starts (or
// replaces) the user's walker. Validation failures leave all state
// untouched.
func (e *WalkerEngine) RequestMove(ctx context.Context, userID int64, targetX, targetY float64) error {
	p, err := e.cache.Player(ctx, userID)
	if err != nil {
		return err
	}
	if !e.geo.Allowed(targetX, targetY, p.Realm) {
		return geo.ErrRegionDenied
	}
	route, err := nav.FindRoute(e.graph, p.X, p.Y, targetX, targetY)
	if err != nil {
		return err
	}

	now := time.Now()
	w := &world.Walker{
		UserID:    userID,
		Realm:     p.Realm,
		Route:     route,
		Index:     0,
		StartedAt: now,
		UpdatedAt: now,
	}
	// Replace semantics: at most one walker per user, a new request
	// implicitly cancels the old walk.
	e.mu.Lock()
	e.walkers[userID] = w
	e.mu.Unlock()
	if err := e.store.Upsert(ctx, w); err != nil {
		return err
	}
	return nil
}

// Cancel drops a user's walker, if any (logout, 3D-mode enter).
func (e *WalkerEngine) Cancel(ctx context.Context, userID int64) {
	e.mu.Lock()
	_, had := e.walkers[userID]
	delete(e.walkers, userID)
	e.mu.Unlock()
	if had {
		if err := e.store.Delete(ctx, userID); err != nil {
			e.log.Error("delete walker", zap.Int64("user", userID), zap.Error(err))
		}
	}
}

// Walking reports whether the user currently has an active walker.
func (e *WalkerEngine) Walking(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.walkers[userID]
	return ok
}

func (e *WalkerEngine) Name() string { return "walker" }

// Run advances every active walker one waypoint. Per-walker failures
// are logged and skipped so one bad entity never stalls the tick.
func (e *WalkerEngine) Run(ctx context.Context) error {
	e.mu.Lock()
	active := make([]*world.Walker, 0, len(e.walkers))
	for _, w := range e.walkers {
		active = append(active, w)
	}
	e.mu.Unlock()

	for _, w := range active {
		if err := e.step(ctx, w); err != nil {
			e.log.Error("walker step", zap.Int64("user", w.UserID), zap.Error(err))
		}
	}
	return nil
}

func (e *WalkerEngine) step(ctx context.Context, w *world.Walker) error {
	e.mu.Lock()
	if e.walkers[w.UserID] != w {
		// Replaced mid-tick by a newer move request.
		e.mu.Unlock()
		return nil
	}
	w.Index++
	w.UpdatedAt = time.Now()
	pt := w.Route[w.Index]
	done := w.Done()
	if done {
		delete(e.walkers, w.UserID)
	}
	e.mu.Unlock()

	err := e.cache.UpdatePlayer(ctx, w.UserID, func(p *world.Player) {
		p.X = pt.X
		p.Y = pt.Y
	})
	if err != nil {
		return err
	}

	if done {
		if err := e.store.Delete(ctx, w.UserID); err != nil {
			e.log.Error("delete finished walker", zap.Int64("user", w.UserID), zap.Error(err))
		}
		event.Emit(e.bus, ArriveEvent{UserID: w.UserID, X: pt.X, Y: pt.Y})
		return nil
	}

	if err := e.store.SaveProgress(ctx, w.UserID, w.Index); err != nil {
		e.log.Error("save walker progress", zap.Int64("user", w.UserID), zap.Error(err))
	}
	// Derived walk speed may be stale until an equipment change
	// invalidates it; the step event carries whatever is cached.
	speed := e.speedFor(ctx, w.UserID)
	event.Emit(e.bus, StepEvent{UserID: w.UserID, X: pt.X, Y: pt.Y, Index: w.Index, Speed: speed})
	return nil
}

func (e *WalkerEngine) speedFor(ctx context.Context, userID int64) float64 {
	return e.cache.Equipment(userID, func() float64 {
		p, err := e.cache.Player(ctx, userID)
		if err != nil {
			return 1.0
		}
		return p.WalkSpeed
	})
}
