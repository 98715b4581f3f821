package persist

import (
	"context"
	"time"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// SpawnRepo persists live collectable nodes so spawns survive a
// restart without re-rolling the world.
type SpawnRepo struct {
	db *DB
}

func NewSpawnRepo(db *DB) *SpawnRepo {
	return &SpawnRepo{db: db}
}

func (r *SpawnRepo) Insert(ctx context.Context, s *world.Spawn) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO spawns (id, spawn_key, rule, x, y, item_id, claimed_by)
		 VALUES ($1, $2, $3, $4, $5, $6, 0)`,
		s.ID, s.Key, s.Rule, s.X, s.Y, s.ItemID)
	return err
}

func (r *SpawnRepo) Remove(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM spawns WHERE id = $1`, id)
	return err
}

func (r *SpawnRepo) LoadAll(ctx context.Context) ([]*world.Spawn, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, spawn_key, rule, x, y, item_id, claimed_by FROM spawns`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*world.Spawn
	for rows.Next() {
		var s world.Spawn
		if err := rows.Scan(&s.ID, &s.Key, &s.Rule, &s.X, &s.Y, &s.ItemID, &s.ClaimedBy); err != nil {
			return nil, err
		}
		s.State = world.SpawnUnclaimed
		if s.ClaimedBy != 0 {
			s.State = world.SpawnClaimed
		}
		s.SpawnedAt = time.Now()
		result = append(result, &s)
	}
	return result, rows.Err()
}
