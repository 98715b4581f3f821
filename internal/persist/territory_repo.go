package persist

import (
	"context"
	"time"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/world"
)

// TerritoryRepo persists territory and superboss snapshots.
type TerritoryRepo struct {
	db *DB
}

func NewTerritoryRepo(db *DB) *TerritoryRepo {
	return &TerritoryRepo{db: db}
}

func (r *TerritoryRepo) LoadTerritories(ctx context.Context) ([]*world.Territory, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, owner_realm, health, max_health, contested, destroyed_until
		 FROM territories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*world.Territory
	for rows.Next() {
		var t world.Territory
		var destroyed *time.Time
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerRealm, &t.Health, &t.MaxHealth,
			&t.Contested, &destroyed); err != nil {
			return nil, err
		}
		if destroyed != nil {
			t.DestroyedUntil = *destroyed
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

func (r *TerritoryRepo) SaveTerritory(ctx context.Context, t *world.Territory) error {
	var destroyed *time.Time
	if !t.DestroyedUntil.IsZero() {
		destroyed = &t.DestroyedUntil
	}
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE territories
		 SET owner_realm = $2, health = $3, contested = $4, destroyed_until = $5
		 WHERE id = $1`,
		t.ID, t.OwnerRealm, t.Health, t.Contested, destroyed)
	return err
}

func (r *TerritoryRepo) LoadBosses(ctx context.Context) ([]*world.Boss, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, health, max_health, dead, respawn_at FROM bosses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*world.Boss
	for rows.Next() {
		var b world.Boss
		var respawn *time.Time
		if err := rows.Scan(&b.ID, &b.Name, &b.Health, &b.MaxHealth, &b.Dead, &respawn); err != nil {
			return nil, err
		}
		if respawn != nil {
			b.RespawnAt = *respawn
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}

func (r *TerritoryRepo) SaveBoss(ctx context.Context, b *world.Boss) error {
	var respawn *time.Time
	if !b.RespawnAt.IsZero() {
		respawn = &b.RespawnAt
	}
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE bosses SET health = $2, dead = $3, respawn_at = $4 WHERE id = $1`,
		b.ID, b.Health, b.Dead, respawn)
	return err
}
