package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/cache"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/config"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/event"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/core/job"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/data"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/gateway"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/geo"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/nav"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/persist"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/scripting"
	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/sim"
)

// playerStoreAdapter bridges cache.PositionUpdate to the structurally
// identical persist.PositionUpdate so *persist.PlayerRepo satisfies
// cache.PlayerStore.
type playerStoreAdapter struct {
	*persist.PlayerRepo
}

func (a playerStoreAdapter) FlushPositions(ctx context.Context, updates []cache.PositionUpdate) error {
	converted := make([]persist.PositionUpdate, len(updates))
	for i, u := range updates {
		converted[i] = persist.PositionUpdate(u)
	}
	return a.PlayerRepo.FlushPositions(ctx, converted)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        Regnum Nostalgia  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        world simulation server            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("REGNUM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	db, err := persist.NewDB(bootCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(bootCtx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Repositories
	playerRepo := persist.NewPlayerRepo(db)
	walkerRepo := persist.NewWalkerRepo(db)
	territoryRepo := persist.NewTerritoryRepo(db)
	spawnRepo := persist.NewSpawnRepo(db)

	// 5. Reference data
	printSection("data load")

	dataFile := func(name string) string { return filepath.Join(cfg.Server.DataDir, name) }

	regionTable, err := data.LoadRegionTable(dataFile("regions.yaml"))
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	printStat("regions", regionTable.Count())

	pathTable, err := data.LoadPathTable(dataFile("paths.yaml"))
	if err != nil {
		return fmt.Errorf("load paths: %w", err)
	}
	printStat("waypoint paths", pathTable.Count())

	lootTables, err := data.LoadLootTables(dataFile("loot.yaml"))
	if err != nil {
		return fmt.Errorf("load loot tables: %w", err)
	}
	printStat("loot tables", lootTables.Count())

	spawnTable, err := data.LoadSpawnTable(dataFile("spawns.yaml"))
	if err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}
	printStat("spawn definitions", spawnTable.Count())

	spellTable, err := data.LoadSpellTable(dataFile("spells.yaml"))
	if err != nil {
		return fmt.Errorf("load spells: %w", err)
	}
	printStat("spells", spellTable.Count())

	graph := nav.Build(pathTable, cfg.Movement.BridgeDist)
	printStat("nav graph nodes", len(graph.Nodes))

	// 6. Lua formula engine
	luaEngine, err := scripting.NewEngine(cfg.Server.ScriptDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua formulas loaded")

	// 7. Cache layer, event bus, world state
	bus := event.NewBus()
	layer := cache.NewLayer(cache.NewStore(), playerStoreAdapter{playerRepo}, territoryRepo, cfg.Cache, log)
	if err := layer.LoadWorld(bootCtx); err != nil {
		return fmt.Errorf("load world state: %w", err)
	}
	printOK("world state primed")

	// 8. Workers
	checker := geo.NewChecker(regionTable)
	walker := sim.NewWalkerEngine(layer, checker, graph, walkerRepo, bus, log)
	if err := walker.Restore(bootCtx); err != nil {
		return fmt.Errorf("restore walkers: %w", err)
	}
	regen := sim.NewRegenTicker(layer, luaEngine, bus, cfg.Regen, log)
	spells := sim.NewSpellTicker(layer, spellTable, luaEngine, bus, log)
	spawner := sim.NewSpawner(spawnTable, lootTables, spawnRepo, bus, cfg.Spawner.DefaultRespawn, log)
	if err := spawner.Restore(bootCtx); err != nil {
		return fmt.Errorf("restore spawns: %w", err)
	}
	fmt.Println()

	scheduler := job.NewScheduler(cfg.Ticks.MaxRetries, log)
	scheduler.Register(walker, cfg.Ticks.Walker)
	scheduler.Register(regen, cfg.Ticks.Regen)
	scheduler.Register(spells, cfg.Ticks.Spells)
	scheduler.Register(spawner, cfg.Ticks.Spawner)
	if cfg.Server.WarStatusURL != "" {
		authority := sim.NewWarStatusAuthority(cfg.Server.WarStatusURL)
		scheduler.Register(sim.NewTerritorySync(layer, authority, bus, log), cfg.Ticks.Territory)
	}
	scheduler.Register(job.JobFunc{JobName: "cache-flush", Fn: layer.Flush}, cfg.Cache.FlushEvery)

	// 9. Gateway + run group
	gw := gateway.New(cfg.Server, cfg.Movement, layer, checker, walker, spells, spawner, bus, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", cfg.Server.BindAddress))
	printReady(fmt.Sprintf("tick intervals: walker %s, regen %s, spells %s, spawner %s",
		cfg.Ticks.Walker, cfg.Ticks.Regen, cfg.Ticks.Spells, cfg.Ticks.Spawner))
	fmt.Println()

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(runCtx) })
	g.Go(func() error { return gw.Run(runCtx) })

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("shutdown signal received")

	// Final flush so buffered positions survive the restart.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if err := layer.Flush(flushCtx); err != nil {
		log.Error("final flush", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
