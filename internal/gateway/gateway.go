// Package gateway is the WebSocket edge of the world server. It
// speaks JSON envelopes, answers requests synchronously and fans
// world events out from the in-process bus. Tickers never see a
// socket; the gateway never mutates world state directly.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/config"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/geo"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/nav"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/persist"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/sim"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/sim/fpmove"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// Gateway serves the client-facing WebSocket endpoint.
type Gateway struct {
	cfg     config.ServerConfig
	move    config.MovementConfig
	log     *zap.Logger
	bus     *event.Bus
	cache   *cache.Layer
	geo     *geo.Checker
	walker  *sim.WalkerEngine
	spells  *sim.SpellTicker
	spawner *sim.Spawner

	mu      sync.Mutex
	clients map[int64]*client
}

func New(cfg config.ServerConfig, move config.MovementConfig, c *cache.Layer, g *geo.Checker,
	walker *sim.WalkerEngine, spells *sim.SpellTicker, spawner *sim.Spawner,
	bus *event.Bus, log *zap.Logger) *Gateway {

	gw := &Gateway{
		cfg:     cfg,
		move:    move,
		log:     log,
		bus:     bus,
		cache:   c,
		geo:     g,
		walker:  walker,
		spells:  spells,
		spawner: spawner,
		clients: make(map[int64]*client),
	}
	gw.subscribe()
	return gw
}

// subscribe fans bus events out to connected clients.
func (g *Gateway) subscribe() {
	event.Subscribe(g.bus, func(ev sim.StepEvent) { g.broadcast("step", ev) })
	event.Subscribe(g.bus, func(ev sim.ArriveEvent) { g.broadcast("arrive", ev) })
	event.Subscribe(g.bus, func(ev sim.RegenEvent) { g.broadcast("regen", ev) })
	event.Subscribe(g.bus, func(ev sim.SpellTickEvent) { g.unicast(ev.UserID, "spell_tick", ev) })
	event.Subscribe(g.bus, func(ev sim.SpellExpiredEvent) { g.unicast(ev.UserID, "spell_expired", ev) })
	event.Subscribe(g.bus, func(ev sim.CooldownEvent) { g.unicast(ev.UserID, "cooldown", ev) })
	event.Subscribe(g.bus, func(ev sim.CaptureEvent) { g.broadcast("capture", ev) })
	event.Subscribe(g.bus, func(ev sim.SpawnEvent) { g.broadcast("spawn", ev) })
}

// Run serves until the context is cancelled, then shuts the listener
// down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)

	srv := &http.Server{Addr: g.cfg.BindAddress, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	g.log.Info("gateway listening", zap.String("addr", g.cfg.BindAddress))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	c, err := g.join(r.Context(), conn)
	if err != nil {
		g.log.Warn("join rejected", zap.Error(err))
		return
	}
	defer g.leave(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.send("error", result{Op: "decode", Code: "bad_envelope"})
			continue
		}
		g.dispatch(r.Context(), c, env)
	}
}

// join reads the first frame, which must be a join request, and
// registers the connection. A second connection for the same user
// replaces the first.
func (g *Gateway) join(ctx context.Context, conn *websocket.Conn) (*client, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != "join" {
		return nil, errors.New("first frame must be join")
	}
	var req joinRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil || req.UserID == 0 {
		return nil, errors.New("malformed join payload")
	}

	p, err := g.cache.Player(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	c := &client{userID: req.UserID, conn: conn}
	g.mu.Lock()
	old := g.clients[req.UserID]
	g.clients[req.UserID] = c
	g.mu.Unlock()
	if old != nil {
		old.conn.Close()
	}
	g.cache.SetOnline(req.UserID)

	g.log.Info("player joined", zap.Int64("user", req.UserID), zap.String("realm", p.Realm))
	return c, c.send("join_ok", joinReply{
		UserID: p.UserID, Name: p.Name, Realm: p.Realm,
		X: p.X, Y: p.Y,
		Health: p.Health, MaxHealth: p.MaxHealth,
		Mana: p.Mana, MaxMana: p.MaxMana,
		Level: p.Level,
	})
}

func (g *Gateway) leave(c *client) {
	// A replaced connection must not tear down its successor's state.
	g.mu.Lock()
	current := g.clients[c.userID] == c
	if current {
		delete(g.clients, c.userID)
	}
	g.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s := c.takeFPSession(); s != nil {
		g.exitFP(ctx, c, s)
	}
	g.cache.SetOffline(c.userID)
	g.log.Info("player left", zap.Int64("user", c.userID))
}

func (g *Gateway) dispatch(ctx context.Context, c *client, env Envelope) {
	switch env.Type {
	case "move":
		var req moveRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.send("result", result{Op: "move", Code: "bad_payload"})
			return
		}
		g.reply(c, "move", g.walker.RequestMove(ctx, c.userID, req.X, req.Y))

	case "cancel_move":
		g.walker.Cancel(ctx, c.userID)
		c.send("result", result{Op: "cancel_move", OK: true})

	case "fp_enter":
		g.enterFP(ctx, c)

	case "fp_input":
		var req fpInputRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.send("result", result{Op: "fp_input", Code: "bad_payload"})
			return
		}
		s := c.fpSession()
		if s == nil {
			c.send("result", result{Op: "fp_input", Code: "not_in_3d"})
			return
		}
		s.Offer(fpmove.Input{Seq: req.Seq, DX: req.DX, DZ: req.DZ, Sprint: req.Sprint, Yaw: req.Yaw})

	case "fp_exit":
		s := c.takeFPSession()
		if s == nil {
			c.send("result", result{Op: "fp_exit", Code: "not_in_3d"})
			return
		}
		g.exitFP(ctx, c, s)

	case "cast":
		var req castRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.send("result", result{Op: "cast", Code: "bad_payload"})
			return
		}
		g.reply(c, "cast", g.spells.Cast(ctx, c.userID, req.SpellKey))

	case "claim":
		var req spawnRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.send("result", result{Op: "claim", Code: "bad_payload"})
			return
		}
		g.reply(c, "claim", g.spawner.Claim(c.userID, req.SpawnID))

	case "collect":
		var req spawnRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.send("result", result{Op: "collect", Code: "bad_payload"})
			return
		}
		drops, err := g.spawner.Collect(ctx, c.userID, req.SpawnID)
		if err != nil {
			g.reply(c, "collect", err)
			return
		}
		out := make([]drop, len(drops))
		for i, d := range drops {
			out[i] = drop{ItemID: d.ItemID, Count: d.Count}
		}
		c.send("collect_ok", collectReply{SpawnID: req.SpawnID, Drops: out})

	case "release":
		var req spawnRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.send("result", result{Op: "release", Code: "bad_payload"})
			return
		}
		g.reply(c, "release", g.spawner.Release(c.userID, req.SpawnID))

	default:
		c.send("result", result{Op: env.Type, Code: "unknown_op"})
	}
}

// enterFP switches the player into first-person movement: the 2D
// walker is cancelled and a reconciler session starts at the current
// position.
func (g *Gateway) enterFP(ctx context.Context, c *client) {
	if c.fpSession() != nil {
		c.send("result", result{Op: "fp_enter", Code: "already_in_3d"})
		return
	}
	p, err := g.cache.Player(ctx, c.userID)
	if err != nil {
		g.reply(c, "fp_enter", err)
		return
	}
	g.walker.Cancel(ctx, c.userID)

	realm := p.Realm
	cfg := fpmove.Config{
		BaseSpeed:  g.move.BaseSpeed,
		SprintMult: g.move.SprintMult,
		MinX:       g.move.WorldMinX, MaxX: g.move.WorldMaxX,
		MinZ: g.move.WorldMinZ, MaxZ: g.move.WorldMaxZ,
	}
	allowed := func(x, z float64) bool { return g.geo.Allowed(x, z, realm) }
	ack := func(a fpmove.Ack) {
		if err := c.send("fp_ack", a); err != nil {
			g.log.Debug("fp ack send", zap.Int64("user", c.userID), zap.Error(err))
		}
	}
	s := fpmove.NewSession(c.userID, fpmove.Position{X: p.X, Z: p.Y}, cfg, g.move.InputQueue, allowed, ack, g.log)
	c.setFPSession(s)

	c.send("fp_enter_ok", fpEnterReply{
		SessionID:  uuid.NewString(),
		X:          p.X,
		Z:          p.Y,
		BaseSpeed:  cfg.BaseSpeed,
		SprintMult: cfg.SprintMult,
	})
}

// exitFP drains the session and writes the final position back into
// the 2D world.
func (g *Gateway) exitFP(ctx context.Context, c *client, s *fpmove.Session) {
	final := s.Stop()
	err := g.cache.UpdatePlayer(ctx, c.userID, func(p *world.Player) {
		p.X = final.X
		p.Y = final.Z
	})
	if err != nil {
		g.log.Error("persist 3d exit position", zap.Int64("user", c.userID), zap.Error(err))
		g.reply(c, "fp_exit", err)
		return
	}
	c.send("fp_exit_ok", fpExitReply{X: final.X, Y: final.Z})
}

func (g *Gateway) reply(c *client, op string, err error) {
	if err == nil {
		c.send("result", result{Op: op, OK: true})
		return
	}
	c.send("result", result{Op: op, Code: errCode(err)})
}

// errCode maps domain conflicts onto stable wire codes. Anything
// unexpected becomes "internal" and is logged server-side only.
func errCode(err error) string {
	switch {
	case errors.Is(err, nav.ErrNoRoute):
		return "no_route"
	case errors.Is(err, geo.ErrRegionDenied):
		return "region_denied"
	case errors.Is(err, sim.ErrOnCooldown):
		return "on_cooldown"
	case errors.Is(err, sim.ErrMaxStacks):
		return "max_stacks"
	case errors.Is(err, sim.ErrUnknownSpell):
		return "unknown_spell"
	case errors.Is(err, sim.ErrSpawnClaimed):
		return "spawn_claimed"
	case errors.Is(err, sim.ErrNoSpawn):
		return "no_spawn"
	case errors.Is(err, sim.ErrNotClaimant):
		return "not_claimant"
	case errors.Is(err, persist.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func (g *Gateway) broadcast(typ string, payload any) {
	g.mu.Lock()
	list := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		list = append(list, c)
	}
	g.mu.Unlock()
	for _, c := range list {
		if err := c.send(typ, payload); err != nil {
			g.log.Debug("broadcast send", zap.Int64("user", c.userID), zap.Error(err))
		}
	}
}

func (g *Gateway) unicast(userID int64, typ string, payload any) {
	g.mu.Lock()
	c := g.clients[userID]
	g.mu.Unlock()
	if c == nil {
		return
	}
	if err := c.send(typ, payload); err != nil {
		g.log.Debug("unicast send", zap.Int64("user", userID), zap.Error(err))
	}
}
