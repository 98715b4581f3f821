package sim

// Outbound domain events. The gateway subscribes to these and fans
// them out to connected clients; tickers never talk to sockets.

// StepEvent is one waypoint advance of a walking player.
type StepEvent struct {
	UserID int64
	X, Y   float64
	Index  int
	Speed  float64
}

// ArriveEvent fires when a walker reaches its final waypoint.
type ArriveEvent struct {
	UserID int64
	X, Y   float64
}

// RegenEvent is a per-tick vital delta for one entity.
type RegenEvent struct {
	Kind   string // "player", "territory", "boss"
	ID     int64
	Health int
	Mana   int // players only
}

// SpellTickEvent is one per-tick spell effect application.
type SpellTickEvent struct {
	UserID    int64
	Key       string
	Effect    string
	Amount    int
	Remaining int
}

// SpellExpiredEvent fires when an active spell runs out.
type SpellExpiredEvent struct {
	UserID int64
	Key    string
}

// CooldownEvent announces a newly armed spell cooldown.
type CooldownEvent struct {
	UserID  int64
	Key     string
	Seconds int
	Icon    string
}

// CaptureEvent fires when territory ownership changes upstream.
type CaptureEvent struct {
	TerritoryID int64
	Name        string
	OldOwner    string
	NewOwner    string
}

// SpawnEvent tracks the collectable lifecycle.
type SpawnEvent struct {
	SpawnID string
	Key     string
	X, Y    float64
	ItemID  int32
	State   string // "spawned", "claimed", "collected", "released"
	UserID  int64  // claimer, when relevant
}
