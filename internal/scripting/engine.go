package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the tunable game
// formulas: regen amounts and spell magnitudes. Tick workers run
// concurrently, so every call is serialized behind a mutex — the
// formulas are tiny, contention is not a concern at these tick rates.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all .lua files from the
// script directory. A missing directory is not an error: every
// formula has a built-in fallback.
func NewEngine(scriptDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// CalcHealthRegen returns the per-tick health regeneration for a
// player. Fallback: 1% of max, minimum 1.
func (e *Engine) CalcHealthRegen(level, maxHealth int) int {
	if v, ok := e.callInt("calc_health_regen", level, maxHealth); ok {
		return v
	}
	amount := maxHealth / 100
	if amount < 1 {
		amount = 1
	}
	return amount
}

// CalcManaRegen returns the per-tick mana regeneration for a player.
// Fallback: 2% of max, minimum 1.
func (e *Engine) CalcManaRegen(level, maxMana int) int {
	if v, ok := e.callInt("calc_mana_regen", level, maxMana); ok {
		return v
	}
	amount := maxMana / 50
	if amount < 1 {
		amount = 1
	}
	return amount
}

// CalcSpellMagnitude scales a spell's base per-tick amount by the
// caster's level. Fallback: base + level/10.
func (e *Engine) CalcSpellMagnitude(base, casterLevel int) int {
	if v, ok := e.callInt("calc_spell_magnitude", base, casterLevel); ok {
		return v
	}
	return base + casterLevel/10
}

// callInt invokes a global Lua function returning one number. The
// second return is false when the function is not defined or errors,
// in which case the caller uses its built-in fallback.
func (e *Engine) callInt(name string, args ...int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return 0, false
	}
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LNumber(a)
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
		e.log.Error("lua call failed", zap.String("fn", name), zap.Error(err))
		return 0, false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	if n, ok := result.(lua.LNumber); ok {
		return int(n), true
	}
	return 0, false
}
