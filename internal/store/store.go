// Package store persists zone definitions. The engine core never
// touches storage: the store only exchanges the declarative
// zone.Definition records with it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/zonekit/internal/zone"
)

// Store wraps a pgx connection pool for zone definition operations.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store handle.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// LoadAll retrieves every stored zone definition ordered by id.
func (s *Store) LoadAll(ctx context.Context) ([]zone.Definition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT definition FROM zones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var defs []zone.Definition
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning zone row: %w", err)
		}
		var def zone.Definition
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("decoding zone definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zone rows: %w", err)
	}
	return defs, nil
}

// Load retrieves one zone definition. Returns (zero, false, nil) when
// the id is unknown.
func (s *Store) Load(ctx context.Context, id int32) (zone.Definition, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT definition FROM zones WHERE id = $1`, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zone.Definition{}, false, nil
		}
		return zone.Definition{}, false, fmt.Errorf("querying zone %d: %w", id, err)
	}

	var def zone.Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return zone.Definition{}, false, fmt.Errorf("decoding zone %d: %w", id, err)
	}
	return def, true, nil
}

// SaveAll upserts every definition in one transaction.
func (s *Store) SaveAll(ctx context.Context, defs []zone.Definition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, def := range defs {
		raw, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("encoding zone %d: %w", def.ID, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO zones (id, name, zone_type, enabled, priority, definition, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   zone_type = EXCLUDED.zone_type,
			   enabled = EXCLUDED.enabled,
			   priority = EXCLUDED.priority,
			   definition = EXCLUDED.definition,
			   updated_at = now()`,
			def.ID, def.Name, def.Type, def.Enabled, def.Priority, raw,
		)
		if err != nil {
			return fmt.Errorf("upserting zone %d: %w", def.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing zones: %w", err)
	}
	return nil
}

// Delete removes a stored definition. Returns false for an unknown id.
func (s *Store) Delete(ctx context.Context, id int32) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting zone %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
