package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

func (r *PlayerRepo) Load(ctx context.Context, userID int64) (*world.Player, error) {
	var p world.Player
	err := r.db.Pool.QueryRow(ctx,
		`SELECT user_id, name, realm, x, y, health, max_health, mana, max_mana,
		        level, xp, walk_speed, last_active
		 FROM players WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Name, &p.Realm, &p.X, &p.Y, &p.Health, &p.MaxHealth,
		&p.Mana, &p.MaxMana, &p.Level, &p.XP, &p.WalkSpeed, &p.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the full volatile projection back to the canonical row.
func (r *PlayerRepo) Save(ctx context.Context, p *world.Player) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players
		 SET x = $2, y = $3, health = $4, mana = $5, level = $6, xp = $7,
		     last_active = $8
		 WHERE user_id = $1`,
		p.UserID, p.X, p.Y, p.Health, p.Mana, p.Level, p.XP, p.LastActive)
	return err
}

// PositionUpdate is one buffered write-behind entry.
type PositionUpdate struct {
	UserID     int64
	X, Y       float64
	LastActive time.Time
}

// FlushPositions writes a batch of buffered position/last-active
// updates in one round trip.
func (r *PlayerRepo) FlushPositions(ctx context.Context, updates []PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			`UPDATE players SET x = $2, y = $3, last_active = $4 WHERE user_id = $1`,
			u.UserID, u.X, u.Y, u.LastActive)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range updates {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("flush positions: %w", err)
		}
	}
	return nil
}
