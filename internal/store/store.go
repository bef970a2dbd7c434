// Package store gives the rating engine durable persistence over
// Postgres: a pgxpool.Pool wrapped in a DB struct, with its schema
// embedded via embed.FS so migrations ship inside the binary.
package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"whole-history-rating/whr"
)

//go:embed schema.sql
var schemaFS embed.FS

// DB is a durable game log and ratings cache backed by Postgres.
type DB struct{ *pgxpool.Pool }

// Open connects to dsn. Callers should call Migrate once before using DB
// against a fresh database.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &DB{pool}, nil
}

// Close releases the pool. Safe to call on a nil-backed DB.
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

// Migrate applies the embedded schema; every statement in it is
// idempotent (CREATE TABLE/INDEX IF NOT EXISTS), so Migrate is safe to
// call on every process start.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// InsertGame appends one game to the durable log.
func (db *DB) InsertGame(ctx context.Context, rec whr.GameRecord) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO games (black, white, winner, day, handicap)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rec.Black, rec.White, rec.Winner, rec.Day, rec.Handicap).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert game: %w", err)
	}
	return id, nil
}

// LoadGames returns every game ever logged, in insertion order, suitable
// for replaying into a fresh whr.Base via CreateGames.
func (db *DB) LoadGames(ctx context.Context) ([]whr.GameRecord, error) {
	rows, err := db.Query(ctx, `SELECT black, white, winner, day, handicap FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: load games: %w", err)
	}
	defer rows.Close()

	var out []whr.GameRecord
	for rows.Next() {
		var rec whr.GameRecord
		if err := rows.Scan(&rec.Black, &rec.White, &rec.Winner, &rec.Day, &rec.Handicap); err != nil {
			return nil, fmt.Errorf("store: scan game: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate games: %w", err)
	}
	return out, nil
}

// SaveRatings upserts a full rating snapshot.
func (db *DB) SaveRatings(ctx context.Context, base *whr.Base) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, pr := range base.GetOrderedRatings() {
		for _, row := range pr.Ratings {
			_, err := tx.Exec(ctx, `
				INSERT INTO ratings (player, day, elo, uncertainty)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (player, day) DO UPDATE
				  SET elo = EXCLUDED.elo, uncertainty = EXCLUDED.uncertainty, updated_at = now()
			`, pr.Name, row.Day, row.Elo, row.Uncertainty)
			if err != nil {
				return fmt.Errorf("store: upsert rating for %s: %w", pr.Name, err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}
