package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

type WalkerRepo struct {
	db *DB
}

func NewWalkerRepo(db *DB) *WalkerRepo {
	return &WalkerRepo{db: db}
}

// Upsert stores a walker, replacing any existing one for the user.
// One row per user is the invariant the primary key enforces.
func (r *WalkerRepo) Upsert(ctx context.Context, w *world.Walker) error {
	route, err := json.Marshal(w.Route)
	if err != nil {
		return fmt.Errorf("encode route: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO walkers (user_id, route, current_index, started_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET route = EXCLUDED.route, current_index = EXCLUDED.current_index,
		     started_at = EXCLUDED.started_at, updated_at = EXCLUDED.updated_at`,
		w.UserID, route, w.Index, w.StartedAt, w.UpdatedAt)
	return err
}

// SaveProgress persists only the advancing index, once per step tick.
func (r *WalkerRepo) SaveProgress(ctx context.Context, userID int64, index int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE walkers SET current_index = $2, updated_at = now() WHERE user_id = $1`,
		userID, index)
	return err
}

func (r *WalkerRepo) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM walkers WHERE user_id = $1`, userID)
	return err
}

// LoadAll restores every in-flight walker, used at boot so walks
// resume after a crash.
func (r *WalkerRepo) LoadAll(ctx context.Context) ([]*world.Walker, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT user_id, route, current_index, started_at, updated_at FROM walkers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*world.Walker
	for rows.Next() {
		var w world.Walker
		var route []byte
		if err := rows.Scan(&w.UserID, &route, &w.Index, &w.StartedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(route, &w.Route); err != nil {
			return nil, fmt.Errorf("decode route for %d: %w", w.UserID, err)
		}
		result = append(result, &w)
	}
	return result, rows.Err()
}
